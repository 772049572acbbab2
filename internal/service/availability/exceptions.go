package availability

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

type slotKey struct {
	date       model.Date
	start, end model.TimeOfDay
}

func parseSlotRequest(req *model.SlotRequest) (slotKey, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return slotKey{}, err
	}
	start, err := parseTime(req.SlotStart)
	if err != nil {
		return slotKey{}, err
	}
	end, err := parseEndTime(req.SlotEnd)
	if err != nil {
		return slotKey{}, err
	}
	if end <= start {
		return slotKey{}, errors.Validation(errors.CodeInvalidRange, "slot end must be after slot start", nil)
	}
	return slotKey{date: date, start: start, end: end}, nil
}

// BlockSlot hides one exact slot until it is unblocked. Blocking an already
// blocked slot is a no-op that returns the existing row.
func (s *Service) BlockSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.BlockedSlot, error) {
	key, err := parseSlotRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slot := &model.BlockedSlot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      key.date,
		SlotStart: key.start,
		SlotEnd:   key.end,
		IsBlocked: true,
	}
	err = s.store.WithDoctorLock(ctx, doctorID, func(tx repository.Store) error {
		if err := tx.Exceptions().UpsertBlocked(ctx, slot); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), doctorID, model.EventSlotBlocked, slot)
	})
	if err != nil {
		return nil, toAppError(err, "blocked slot")
	}

	s.invalidate(ctx, doctorID)
	return slot, nil
}

// UnblockSlot clears the block on a slot. The row is kept with IsBlocked
// false; a key that was never blocked is NotFound.
func (s *Service) UnblockSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.BlockedSlot, error) {
	key, err := parseSlotRequest(req)
	if err != nil {
		return nil, err
	}

	slot := &model.BlockedSlot{
		DoctorID:  doctorID,
		Date:      key.date,
		SlotStart: key.start,
		SlotEnd:   key.end,
	}
	err = s.store.WithDoctorLock(ctx, doctorID, func(tx repository.Store) error {
		if err := tx.Exceptions().SetBlocked(ctx, slot, false); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), doctorID, model.EventSlotUnblocked, slot)
	})
	if err != nil {
		return nil, toAppError(err, "blocked slot")
	}

	s.invalidate(ctx, doctorID)
	return slot, nil
}

// DeleteSlot removes a slot permanently. Deleting the same slot twice is a
// conflict.
func (s *Service) DeleteSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.UnavailableSlot, error) {
	key, err := parseSlotRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slot := &model.UnavailableSlot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      key.date,
		SlotStart: key.start,
		SlotEnd:   key.end,
	}
	err = s.store.WithDoctorLock(ctx, doctorID, func(tx repository.Store) error {
		if err := tx.Exceptions().CreateUnavailable(ctx, slot); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), doctorID, model.EventSlotDeleted, slot)
	})
	if stderrors.Is(err, repository.ErrDuplicate) {
		return nil, errors.Conflict(errors.CodeSlotAlreadyDeleted, "slot is already deleted").
			WithDetail("date", key.date.String()).
			WithDetail("slot_start", key.start.String())
	}
	if err != nil {
		return nil, toAppError(err, "unavailable slot")
	}

	s.invalidate(ctx, doctorID)
	return slot, nil
}

func (s *Service) ListExceptions(ctx context.Context, doctorID uuid.UUID, date string) (*model.Exceptions, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	blocked, err := s.store.Exceptions().ListBlocked(ctx, doctorID, day)
	if err != nil {
		return nil, errors.Internal(err)
	}
	unavailable, err := s.store.Exceptions().ListUnavailable(ctx, doctorID, day)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if blocked == nil {
		blocked = []*model.BlockedSlot{}
	}
	if unavailable == nil {
		unavailable = []*model.UnavailableSlot{}
	}
	return &model.Exceptions{Blocked: blocked, Unavailable: unavailable}, nil
}
