package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/cache"
	appointmenthandler "github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	availabilityhandler "github.com/jwalitptl/scheduling-api/internal/handler/availability"
	"github.com/jwalitptl/scheduling-api/internal/handler/health"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/service/appointment"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type testServer struct {
	engine   *gin.Engine
	jwt      *auth.JWTService
	doctorID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC) }
	db := memory.New(memory.Options{Now: now})
	doctorID := uuid.New()
	db.AddDoctor(model.Doctor{ID: doctorID, Name: "Dr. Mensah", Active: true})

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry("test", reg)
	events := event.NewEventService()

	availSvc := availability.NewService(db, db.Doctors(), cache.NewMemorySlotCache(time.Minute, m), events, m, zerolog.Nop())
	apptSvc := appointment.NewService(db, db.Doctors(), events, m, zerolog.Nop(), appointment.Options{Now: now})
	jwtSvc := auth.NewJWTService("test-secret", "clinic-auth")

	r := NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		availabilityhandler.NewHandler(availSvc),
		appointmenthandler.NewHandler(apptSvc),
		health.NewHandler(map[string]health.Pinger{"database": db}),
		m,
		RouterConfig{
			CORSConfig:  middleware.DefaultCORSConfig(),
			Gatherer:    reg,
			MetricsPath: "/metrics",
		},
	)
	r.Setup()
	return &testServer{engine: r.Engine(), jwt: jwtSvc, doctorID: doctorID}
}

func (s *testServer) token(t *testing.T, role auth.Role, doctorID uuid.UUID) string {
	t.Helper()
	claims := auth.Claims{Role: role}
	claims.Subject = "tester"
	if doctorID != uuid.Nil {
		claims.DoctorID = doctorID.String()
	}
	tok, err := s.jwt.Issue(claims, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp httputil.Response
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodGet, "/api/v1/doctors/"+s.doctorID.String()+"/availability", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Unauthorized", string(resp.Error.Kind))
}

func TestDoctorCannotManageAnotherDoctor(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, auth.RoleDoctor, uuid.New())

	w, _ := s.do(t, http.MethodGet, "/api/v1/doctors/"+s.doctorID.String()+"/availability", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/appointments", tok, map[string]string{
		"doctor_id":  s.doctorID.String(),
		"patient_id": uuid.NewString(),
		"date":       "2030-06-03",
		"start_time": "09:00",
		"end_time":   "09:30",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestScheduleFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, auth.RoleDoctor, s.doctorID)
	base := "/api/v1/doctors/" + s.doctorID.String()

	w, resp := s.do(t, http.MethodPost, base+"/availability", tok, map[string]interface{}{
		"day_of_week":    "Mon, Wed",
		"start_time":     "09:00",
		"end_time":       "10:00",
		"slot_duration":  30,
		"break_duration": []string{"15 minutes"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, resp.Success)

	// the midpoint break removes the second slot
	w, resp = s.do(t, http.MethodGet, base+"/slots?date=2030-06-03", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{map[string]interface{}{"start": "09:00", "end": "09:30"}}, data["slots"])

	// an overlapping rule is rejected with the conflicting id
	w, resp = s.do(t, http.MethodPost, base+"/availability/validate", tok, map[string]interface{}{
		"day_of_week":   []string{"wednesday"},
		"start_time":    "09:30",
		"end_time":      "11:00",
		"slot_duration": "30 minutes",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RuleConflict", string(resp.Error.Reason))
	assert.Equal(t, []interface{}{"Wednesday"}, resp.Error.Details["overlapping_weekdays"])

	// a Tuesday has no applicable rule
	w, resp = s.do(t, http.MethodGet, base+"/slots?date=2030-06-04", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NoAvailability", string(resp.Error.Kind))

	w, _ = s.do(t, http.MethodPost, base+"/slots/delete", tok, map[string]string{
		"date": "2030-06-03", "slot_start": "09:00", "slot_end": "09:30",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, resp = s.do(t, http.MethodGet, base+"/slots?date=2030-06-03", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data.(map[string]interface{})["slots"])
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, auth.RoleClinic, uuid.Nil)
	booking := map[string]string{
		"doctor_id":  s.doctorID.String(),
		"patient_id": uuid.NewString(),
		"date":       "2030-06-03",
		"start_time": "09:00",
		"end_time":   "09:30",
	}

	w, resp := s.do(t, http.MethodPost, "/api/v1/appointments", tok, booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := resp.Data.(map[string]interface{})["id"].(string)

	w, resp = s.do(t, http.MethodPost, "/api/v1/appointments", tok, booking)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BookingConflict", string(resp.Error.Reason))

	w, resp = s.do(t, http.MethodPost, "/api/v1/appointments/validate", tok, map[string]string{
		"doctor_id":  s.doctorID.String(),
		"date":       "2030-05-31",
		"start_time": "09:00",
		"end_time":   "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PastBooking", string(resp.Error.Kind))

	w, _ = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", tok, map[string]string{"reason": "sick"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/v1/doctors/"+s.doctorID.String()+"/appointments?date=2030-06-03", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := resp.Data.([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "cancelled", list[0].(map[string]interface{})["status"])
}

func TestBindingErrorsUseFormatCodes(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, auth.RoleAdmin, uuid.Nil)

	w, resp := s.do(t, http.MethodPost, "/api/v1/doctors/"+s.doctorID.String()+"/slots/block", tok, map[string]string{
		"date": "03/06/2030", "slot_start": "09:00", "slot_end": "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InvalidDateFormat", string(resp.Error.Reason))

	w, resp = s.do(t, http.MethodPost, "/api/v1/doctors/"+s.doctorID.String()+"/slots/block", tok, map[string]string{
		"date": "2030-06-03", "slot_start": "24:00", "slot_end": "24:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InvalidTimeFormat", string(resp.Error.Reason))

	w, _ = s.do(t, http.MethodGet, "/api/v1/doctors/not-a-uuid/slots?date=2030-06-03", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuleMayEndAtMidnight(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, auth.RoleAdmin, uuid.Nil)
	base := "/api/v1/doctors/" + s.doctorID.String()

	w, _ := s.do(t, http.MethodPost, base+"/availability", tok, map[string]interface{}{
		"day_of_week":   []string{"Monday"},
		"start_time":    "23:00",
		"end_time":      "24:00",
		"slot_duration": "30 minutes",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, base+"/slots/block", tok, map[string]string{
		"date": "2030-06-03", "slot_start": "23:30", "slot_end": "24:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, base+"/slots?date=2030-06-03", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"end":"23:30"`)
	assert.NotContains(t, w.Body.String(), `"end":"24:00"`)
}
