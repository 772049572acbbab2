package auth

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated caller.
type Actor struct {
	Subject  string
	Role     Role
	DoctorID uuid.UUID
}

// CanManage reports whether the actor may change doctorID's schedule. Doctors
// manage only their own; clinic roles act on any doctor's behalf.
func (a Actor) CanManage(doctorID uuid.UUID) bool {
	if a.Role == RoleDoctor {
		return a.DoctorID == doctorID
	}
	return a.Role.Valid()
}

func (a Actor) String() string {
	if a.Subject == "" {
		return string(a.Role)
	}
	return string(a.Role) + ":" + a.Subject
}

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
