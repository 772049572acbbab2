// Package cache holds read-through caches for generated slots and the doctor
// directory.
package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// SlotCache caches generated slot lists per doctor and date. Every write that
// can change a doctor's slots calls Invalidate, which bumps the doctor's
// version; entries are keyed by version so a lookup that raced with a write
// stores its result under a version nobody reads again.
type SlotCache interface {
	// Lookup returns the cached slots, if any, and the key under which a
	// freshly generated result should be stored.
	Lookup(ctx context.Context, doctorID uuid.UUID, date model.Date) (slots []model.Slot, key string, hit bool)
	Store(ctx context.Context, key string, slots []model.Slot)
	Invalidate(ctx context.Context, doctorID uuid.UUID) error
}

func versionKey(doctorID uuid.UUID) string {
	return "slotsver:" + doctorID.String()
}

func entryKey(doctorID uuid.UUID, version int64, date model.Date) string {
	return fmt.Sprintf("slots:%s:%d:%s", doctorID, version, date)
}

// Noop never hits.
type Noop struct{}

func (Noop) Lookup(context.Context, uuid.UUID, model.Date) ([]model.Slot, string, bool) {
	return nil, "", false
}
func (Noop) Store(context.Context, string, []model.Slot) {}
func (Noop) Invalidate(context.Context, uuid.UUID) error { return nil }
