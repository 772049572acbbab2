package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "clinic-auth")
	doctorID := uuid.New()

	token, err := svc.Issue(Claims{
		Role:             RoleDoctor,
		DoctorID:         doctorID.String(),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}, time.Hour)
	require.NoError(t, err)

	actor, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, actor.Role)
	assert.Equal(t, doctorID, actor.DoctorID)
	assert.True(t, actor.CanManage(doctorID))
	assert.False(t, actor.CanManage(uuid.New()))
	assert.Equal(t, "doctor:u-1", actor.String())
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", "clinic-auth")

	expired := NewJWTService("secret", "clinic-auth")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(Claims{Role: RoleClinic}, time.Hour)
	require.NoError(t, err)

	other, err := NewJWTService("other", "clinic-auth").Issue(Claims{Role: RoleClinic}, time.Hour)
	require.NoError(t, err)

	noDoctor, err := svc.Issue(Claims{Role: RoleDoctor}, time.Hour)
	require.NoError(t, err)

	badRole, err := svc.Issue(Claims{Role: "patient"}, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      old,
		"wrong secret": other,
		"doctor no id": noDoctor,
		"unknown role": badRole,
		"not a jwt":    "abc.def",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClinicRolesManageAnyDoctor(t *testing.T) {
	for _, role := range []Role{RoleClinic, RoleStaff, RoleAdmin} {
		assert.True(t, Actor{Role: role}.CanManage(uuid.New()), role)
	}
	assert.False(t, Actor{}.CanManage(uuid.New()))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, Actor{Role: RoleStaff})

	a, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleStaff, a.Role)
	assert.Equal(t, "req-1", RequestIDFrom(ctx))

	_, ok = ActorFrom(context.Background())
	assert.False(t, ok)
}
