package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

type Service interface {
	ValidateBooking(ctx context.Context, req *model.BookingCheckRequest) error
	Book(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*model.Appointment, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.POST("/validate", h.ValidateBooking)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/reschedule", h.RescheduleAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
	}
}

// RegisterDoctorRoutes mounts the routes scoped under /doctors/:doctor_id.
func (h *Handler) RegisterDoctorRoutes(rg *gin.RouterGroup) {
	rg.GET("/appointments", h.ListAppointments)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := middleware.Authorize(c, req.DoctorID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, appt)
}

func (h *Handler) ValidateBooking(c *gin.Context) {
	var req model.BookingCheckRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := middleware.Authorize(c, req.DoctorID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.ValidateBooking(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"valid": true})
}

// load fetches the appointment named by :id and checks the actor may act for
// its doctor.
func (h *Handler) load(c *gin.Context) (*model.Appointment, bool) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return nil, false
	}
	if err := middleware.Authorize(c, appt.DoctorID); err != nil {
		httputil.RespondWithError(c, err)
		return nil, false
	}
	return appt, true
}

func (h *Handler) GetAppointment(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}
	var req model.RescheduleRequest
	if !handler.Bind(c, &req) {
		return
	}

	moved, err := h.service.Reschedule(c.Request.Context(), appt.ID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, moved)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}
	var req model.CancelRequest
	if c.Request.ContentLength > 0 && !handler.Bind(c, &req) {
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), appt.ID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, cancelled)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	date, ok := handler.RequiredQuery(c, "date")
	if !ok {
		return
	}

	appts, err := h.service.ListForDoctorDate(c.Request.Context(), doctorID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}
