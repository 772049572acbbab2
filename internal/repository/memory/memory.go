// Package memory is an in-process storage backend. It backs the memory
// database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type exceptionKey struct {
	doctorID   uuid.UUID
	date       string
	start, end model.TimeOfDay
}

type Options struct {
	// AcceptUnknownDoctors makes the doctor directory answer for any id.
	AcceptUnknownDoctors bool
	Now                  func() time.Time
}

// Database keeps every table in maps behind one RWMutex. WithDoctorLock adds
// a per-doctor mutex on top so check-then-write sequences serialize.
type Database struct {
	mu          sync.RWMutex
	rules       map[uuid.UUID]*model.AvailabilityRule
	blocked     map[exceptionKey]*model.BlockedSlot
	unavailable map[exceptionKey]*model.UnavailableSlot
	appts       map[uuid.UUID]*model.Appointment
	outbox      []*model.OutboxEvent
	doctors     map[uuid.UUID]*model.Doctor

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	opts Options
}

var _ repository.Database = (*Database)(nil)

func New(opts Options) *Database {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Database{
		rules:       make(map[uuid.UUID]*model.AvailabilityRule),
		blocked:     make(map[exceptionKey]*model.BlockedSlot),
		unavailable: make(map[exceptionKey]*model.UnavailableSlot),
		appts:       make(map[uuid.UUID]*model.Appointment),
		doctors:     make(map[uuid.UUID]*model.Doctor),
		locks:       make(map[uuid.UUID]*sync.Mutex),
		opts:        opts,
	}
}

// AddDoctor registers a doctor in the directory.
func (d *Database) AddDoctor(doc model.Doctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doctors[doc.ID] = &doc
}

func (d *Database) Availability() repository.AvailabilityRepository {
	return &availabilityRepository{db: d}
}

func (d *Database) Exceptions() repository.ExceptionRepository {
	return &exceptionRepository{db: d}
}

func (d *Database) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: d}
}

func (d *Database) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: d}
}

func (d *Database) Doctors() repository.DoctorRepository {
	return &doctorRepository{db: d}
}

func (d *Database) Ping(ctx context.Context) error { return ctx.Err() }
func (d *Database) Close() error                   { return nil }

func (d *Database) doctorLock(doctorID uuid.UUID) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	l, ok := d.locks[doctorID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[doctorID] = l
	}
	return l
}

// WithDoctorLock runs fn while holding the doctor's mutex. Writes made
// through the Store are undone if fn fails.
func (d *Database) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(repository.Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := d.doctorLock(doctorID)
	l.Lock()
	defer l.Unlock()

	tx := &txStore{db: d}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(tx)
}

// txStore hands out repositories that record an undo step per write.
type txStore struct {
	db   *Database
	undo []func()
}

func (t *txStore) record(fn func()) { t.undo = append(t.undo, fn) }

func (t *txStore) rollback() {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txStore) Availability() repository.AvailabilityRepository {
	return &availabilityRepository{db: t.db, tx: t}
}

func (t *txStore) Exceptions() repository.ExceptionRepository {
	return &exceptionRepository{db: t.db, tx: t}
}

func (t *txStore) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: t.db, tx: t}
}

func (t *txStore) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: t.db, tx: t}
}

// onUndo records fn when running inside WithDoctorLock. Callers hold db.mu.
func onUndo(tx *txStore, fn func()) {
	if tx != nil {
		tx.record(fn)
	}
}

func copyRule(r *model.AvailabilityRule) *model.AvailabilityRule {
	c := *r
	c.BreakDurations = append([]string(nil), r.BreakDurations...)
	if r.StartDate != nil {
		sd := *r.StartDate
		c.StartDate = &sd
	}
	if r.EndDate != nil {
		ed := *r.EndDate
		c.EndDate = &ed
	}
	return &c
}

func copyAppointment(a *model.Appointment) *model.Appointment {
	c := *a
	if a.CancelReason != nil {
		reason := *a.CancelReason
		c.CancelReason = &reason
	}
	return &c
}

type availabilityRepository struct {
	db *Database
	tx *txStore
}

func (r *availabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if _, exists := r.db.rules[rule.ID]; exists {
		return repository.ErrDuplicate
	}
	now := r.db.opts.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.db.rules[rule.ID] = copyRule(rule)

	id := rule.ID
	onUndo(r.tx, func() { delete(r.db.rules, id) })
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, doctorID, id uuid.UUID) (*model.AvailabilityRule, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rule, ok := r.db.rules[id]
	if !ok || rule.DoctorID != doctorID {
		return nil, repository.ErrNotFound
	}
	return copyRule(rule), nil
}

func (r *availabilityRepository) Update(ctx context.Context, rule *model.AvailabilityRule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	prev, ok := r.db.rules[rule.ID]
	if !ok || prev.DoctorID != rule.DoctorID {
		return repository.ErrNotFound
	}
	rule.UpdatedAt = r.db.opts.Now().UTC()
	r.db.rules[rule.ID] = copyRule(rule)

	onUndo(r.tx, func() { r.db.rules[prev.ID] = prev })
	return nil
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityRule, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.AvailabilityRule
	for _, rule := range r.db.rules {
		if rule.DoctorID == doctorID {
			out = append(out, copyRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type exceptionRepository struct {
	db *Database
	tx *txStore
}

func blockedKey(s *model.BlockedSlot) exceptionKey {
	return exceptionKey{s.DoctorID, s.Date.String(), s.SlotStart, s.SlotEnd}
}

func (r *exceptionRepository) UpsertBlocked(ctx context.Context, slot *model.BlockedSlot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := blockedKey(slot)
	now := r.db.opts.Now().UTC()

	if prev, ok := r.db.blocked[key]; ok {
		before := *prev
		updated := *prev
		updated.IsBlocked = true
		updated.UpdatedAt = now
		r.db.blocked[key] = &updated
		*slot = updated
		onUndo(r.tx, func() { r.db.blocked[key] = &before })
		return nil
	}

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.IsBlocked = true
	slot.CreatedAt = now
	slot.UpdatedAt = now
	stored := *slot
	r.db.blocked[key] = &stored
	onUndo(r.tx, func() { delete(r.db.blocked, key) })
	return nil
}

func (r *exceptionRepository) SetBlocked(ctx context.Context, slot *model.BlockedSlot, blocked bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := blockedKey(slot)
	prev, ok := r.db.blocked[key]
	if !ok {
		return repository.ErrNotFound
	}
	before := *prev
	updated := *prev
	updated.IsBlocked = blocked
	updated.UpdatedAt = r.db.opts.Now().UTC()
	r.db.blocked[key] = &updated
	*slot = updated

	onUndo(r.tx, func() { r.db.blocked[key] = &before })
	return nil
}

func (r *exceptionRepository) ListBlocked(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.BlockedSlot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.BlockedSlot
	for key, s := range r.db.blocked {
		if key.doctorID == doctorID && key.date == date.String() {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotStart != out[j].SlotStart {
			return out[i].SlotStart < out[j].SlotStart
		}
		return out[i].SlotEnd < out[j].SlotEnd
	})
	return out, nil
}

func (r *exceptionRepository) CreateUnavailable(ctx context.Context, slot *model.UnavailableSlot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := exceptionKey{slot.DoctorID, slot.Date.String(), slot.SlotStart, slot.SlotEnd}
	if _, ok := r.db.unavailable[key]; ok {
		return repository.ErrDuplicate
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = r.db.opts.Now().UTC()
	stored := *slot
	r.db.unavailable[key] = &stored

	onUndo(r.tx, func() { delete(r.db.unavailable, key) })
	return nil
}

func (r *exceptionRepository) ListUnavailable(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.UnavailableSlot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.UnavailableSlot
	for key, s := range r.db.unavailable {
		if key.doctorID == doctorID && key.date == date.String() {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotStart != out[j].SlotStart {
			return out[i].SlotStart < out[j].SlotStart
		}
		return out[i].SlotEnd < out[j].SlotEnd
	})
	return out, nil
}

type appointmentRepository struct {
	db *Database
	tx *txStore
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if _, exists := r.db.appts[appt.ID]; exists {
		return repository.ErrDuplicate
	}
	now := r.db.opts.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.db.appts[appt.ID] = copyAppointment(appt)

	id := appt.ID
	onUndo(r.tx, func() { delete(r.db.appts, id) })
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	appt, ok := r.db.appts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyAppointment(appt), nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	prev, ok := r.db.appts[appt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	appt.UpdatedAt = r.db.opts.Now().UTC()
	r.db.appts[appt.ID] = copyAppointment(appt)

	onUndo(r.tx, func() { r.db.appts[prev.ID] = prev })
	return nil
}

func (r *appointmentRepository) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Appointment
	for _, a := range r.db.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			out = append(out, copyAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type outboxRepository struct {
	db *Database
	tx *txStore
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.db.opts.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending
	stored := *event
	r.db.outbox = append(r.db.outbox, &stored)

	id := event.ID
	onUndo(r.tx, func() {
		for i, e := range r.db.outbox {
			if e.ID == id {
				r.db.outbox = append(r.db.outbox[:i], r.db.outbox[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *outboxRepository) GetPending(ctx context.Context, limit, maxRetries int) ([]*model.OutboxEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.OutboxEvent
	for _, e := range r.db.outbox {
		if len(out) == limit {
			break
		}
		if e.Status == model.OutboxStatusPending && e.RetryCount < maxRetries {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *outboxRepository) find(id uuid.UUID) *model.OutboxEvent {
	for _, e := range r.db.outbox {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e := r.find(id)
	if e == nil {
		return repository.ErrNotFound
	}
	now := r.db.opts.Now().UTC()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
	e.ErrorMessage = nil
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, final bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e := r.find(id)
	if e == nil {
		return repository.ErrNotFound
	}
	e.RetryCount++
	e.ErrorMessage = &errMsg
	e.UpdatedAt = r.db.opts.Now().UTC()
	if final {
		e.Status = model.OutboxStatusFailed
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	kept := r.db.outbox[:0]
	var deleted int64
	for _, e := range r.db.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.db.outbox = kept
	return deleted, nil
}

type doctorRepository struct {
	db *Database
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if doc, ok := r.db.doctors[id]; ok {
		c := *doc
		return &c, nil
	}
	if r.db.opts.AcceptUnknownDoctors {
		return &model.Doctor{ID: id, Active: true}, nil
	}
	return nil, repository.ErrNotFound
}
