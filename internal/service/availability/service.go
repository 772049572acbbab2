package availability

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduling-api/internal/cache"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// Storage is what the service needs from a backend: plain reads plus the
// per-doctor locked unit of work for writes.
type Storage interface {
	repository.Store
	repository.Transactor
}

type Service struct {
	store   Storage
	doctors repository.DoctorRepository
	slots   cache.SlotCache
	events  event.Emitter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(
	store Storage,
	doctors repository.DoctorRepository,
	slots cache.SlotCache,
	events event.Emitter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	if slots == nil {
		slots = cache.Noop{}
	}
	return &Service{
		store:   store,
		doctors: doctors,
		slots:   slots,
		events:  events,
		metrics: m,
		logger:  logger.With().Str("component", "availability").Logger(),
	}
}

// GenerateSlots returns the bookable slots for doctorID on date. With
// excludeBooked the slots held by active appointments are dropped as well.
func (s *Service) GenerateSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeBooked bool) (*model.SlotList, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slots, key, hit := s.slots.Lookup(ctx, doctorID, day)
	if !hit {
		slots, err = s.generate(ctx, doctorID, day)
		if err != nil {
			s.recordGeneration(err)
			return nil, err
		}
		s.slots.Store(ctx, key, slots)
	}
	s.recordGeneration(nil)

	if excludeBooked {
		appts, err := s.store.Appointments().ListByDoctorDate(ctx, doctorID, day)
		if err != nil {
			return nil, errors.Internal(err)
		}
		slots = scheduling.ExcludeBooked(slots, appts)
	}

	if s.metrics != nil {
		s.metrics.SlotsGenerated.Observe(float64(len(slots)))
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return &model.SlotList{DoctorID: doctorID, Date: day, Slots: slots}, nil
}

func (s *Service) generate(ctx context.Context, doctorID uuid.UUID, day model.Date) ([]model.Slot, error) {
	rules, err := s.store.Availability().ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	blocked, err := s.store.Exceptions().ListBlocked(ctx, doctorID, day)
	if err != nil {
		return nil, errors.Internal(err)
	}
	unavailable, err := s.store.Exceptions().ListUnavailable(ctx, doctorID, day)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return scheduling.GenerateSlots(day, rules, blocked, unavailable)
}

func (s *Service) recordGeneration(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.IsKind(err, errors.KindNoAvailability):
		outcome = "no_availability"
	default:
		outcome = "error"
	}
	s.metrics.SlotGenerations.WithLabelValues(outcome).Inc()
}

// ValidateNewRule is a dry run of CreateRule: it reports a conflict without
// writing anything.
func (s *Service) ValidateNewRule(ctx context.Context, doctorID uuid.UUID, req *model.CreateRuleRequest) error {
	candidate, err := buildRule(doctorID, req)
	if err != nil {
		return err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return err
	}

	existing, err := s.store.Availability().ListByDoctor(ctx, doctorID)
	if err != nil {
		return errors.Internal(err)
	}
	if c := scheduling.CheckRuleConflict(candidate, existing, nil); c != nil {
		return c.Err()
	}
	return nil
}

func (s *Service) CreateRule(ctx context.Context, doctorID uuid.UUID, req *model.CreateRuleRequest) (*model.AvailabilityRule, error) {
	rule, err := buildRule(doctorID, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if actor, ok := auth.ActorFrom(ctx); ok {
		rule.CreatedBy = actor.String()
	}

	err = s.store.WithDoctorLock(ctx, doctorID, func(tx repository.Store) error {
		existing, err := tx.Availability().ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		if c := scheduling.CheckRuleConflict(rule, existing, nil); c != nil {
			s.metrics.Conflict("rule")
			s.logger.Info().
				Str("doctor_id", doctorID.String()).
				Str("conflicting_rule_id", c.RuleID.String()).
				Msg("availability rule rejected")
			return c.Err()
		}
		if err := tx.Availability().Create(ctx, rule); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), doctorID, model.EventRuleCreated, rule)
	})
	if err != nil {
		return nil, toAppError(err, "availability rule")
	}

	s.invalidate(ctx, doctorID)
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("rule_id", rule.ID.String()).
		Str("weekdays", rule.Weekdays.String()).
		Msg("availability rule created")
	return rule, nil
}

// UpdateRule applies a partial update. The merged rule is checked against
// the doctor's other rules only.
func (s *Service) UpdateRule(ctx context.Context, doctorID, ruleID uuid.UUID, req *model.UpdateRuleRequest) (*model.AvailabilityRule, error) {
	var updated *model.AvailabilityRule

	err := s.store.WithDoctorLock(ctx, doctorID, func(tx repository.Store) error {
		current, err := tx.Availability().Get(ctx, doctorID, ruleID)
		if err != nil {
			return err
		}
		updated, err = applyUpdate(current, req)
		if err != nil {
			return err
		}

		existing, err := tx.Availability().ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		if c := scheduling.CheckRuleConflict(updated, existing, &ruleID); c != nil {
			s.metrics.Conflict("rule")
			return c.Err()
		}
		if err := tx.Availability().Update(ctx, updated); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), doctorID, model.EventRuleUpdated, updated)
	})
	if err != nil {
		return nil, toAppError(err, "availability rule")
	}

	s.invalidate(ctx, doctorID)
	return updated, nil
}

func (s *Service) GetRule(ctx context.Context, doctorID, ruleID uuid.UUID) (*model.AvailabilityRule, error) {
	rule, err := s.store.Availability().Get(ctx, doctorID, ruleID)
	if err != nil {
		return nil, toAppError(err, "availability rule")
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityRule, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	rules, err := s.store.Availability().ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if rules == nil {
		rules = []*model.AvailabilityRule{}
	}
	return rules, nil
}

func (s *Service) ensureDoctor(ctx context.Context, doctorID uuid.UUID) error {
	doc, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return toAppError(err, "doctor")
	}
	if !doc.Active {
		return errors.NotFound("doctor", nil)
	}
	return nil
}

// invalidate drops cached slots after a committed write. A failure only
// means readers may see stale slots until the entry expires.
func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if err := s.slots.Invalidate(ctx, doctorID); err != nil {
		s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Msg("failed to invalidate slot cache")
	}
}

// toAppError passes AppErrors through and maps repository sentinels.
func toAppError(err error, resource string) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound(resource, err)
	}
	return errors.Internal(fmt.Errorf("%s: %w", resource, err))
}
