package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/pkg/auth"
)

func newAuthEngine(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("secret", "clinic-auth")
	m := NewAuthMiddleware(jwtSvc)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/doctors/:doctor_id", m.Authenticate(), m.RequireDoctorAccess("doctor_id"), func(c *gin.Context) {
		actor, ok := auth.ActorFrom(c.Request.Context())
		require.True(t, ok)
		assert.NotEmpty(t, auth.RequestIDFrom(c.Request.Context()))
		c.String(http.StatusOK, actor.String())
	})
	return r, jwtSvc
}

func serve(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r, jwtSvc := newAuthEngine(t)
	doctorID := uuid.New()

	own, err := jwtSvc.Issue(auth.Claims{Role: auth.RoleDoctor, DoctorID: doctorID.String()}, time.Hour)
	require.NoError(t, err)
	clinic, err := jwtSvc.Issue(auth.Claims{Role: auth.RoleClinic}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/doctors/" + doctorID.String(), "", http.StatusUnauthorized},
		{"wrong scheme", "/doctors/" + doctorID.String(), "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/doctors/" + doctorID.String(), "Bearer abc", http.StatusUnauthorized},
		{"own doctor", "/doctors/" + doctorID.String(), "Bearer " + own, http.StatusOK},
		{"other doctor", "/doctors/" + uuid.NewString(), "Bearer " + own, http.StatusForbidden},
		{"clinic any doctor", "/doctors/" + uuid.NewString(), "Bearer " + clinic, http.StatusOK},
		{"bad doctor id", "/doctors/xyz", "Bearer " + clinic, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.path, tt.header)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
