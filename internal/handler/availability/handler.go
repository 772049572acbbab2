package availability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

// Service is the part of the availability service the handler uses.
type Service interface {
	GenerateSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeBooked bool) (*model.SlotList, error)
	ValidateNewRule(ctx context.Context, doctorID uuid.UUID, req *model.CreateRuleRequest) error
	CreateRule(ctx context.Context, doctorID uuid.UUID, req *model.CreateRuleRequest) (*model.AvailabilityRule, error)
	UpdateRule(ctx context.Context, doctorID, ruleID uuid.UUID, req *model.UpdateRuleRequest) (*model.AvailabilityRule, error)
	ListRules(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityRule, error)
	BlockSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.BlockedSlot, error)
	UnblockSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.BlockedSlot, error)
	DeleteSlot(ctx context.Context, doctorID uuid.UUID, req *model.SlotRequest) (*model.UnavailableSlot, error)
	ListExceptions(ctx context.Context, doctorID uuid.UUID, date string) (*model.Exceptions, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the doctor-scoped routes on rg, which the router has
// already restricted to actors allowed to manage :doctor_id.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.GetSlots)
	rg.POST("/slots/block", h.BlockSlot)
	rg.DELETE("/slots/block", h.UnblockSlot)
	rg.POST("/slots/delete", h.DeleteSlot)
	rg.GET("/exceptions", h.ListExceptions)

	rules := rg.Group("/availability")
	{
		rules.GET("", h.ListRules)
		rules.POST("", h.CreateRule)
		rules.POST("/validate", h.ValidateRule)
		rules.PATCH("/:rule_id", h.UpdateRule)
	}
}

func (h *Handler) GetSlots(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	date, ok := handler.RequiredQuery(c, "date")
	if !ok {
		return
	}
	excludeBooked, ok := handler.BoolQuery(c, "exclude_booked")
	if !ok {
		return
	}

	slots, err := h.service.GenerateSlots(c.Request.Context(), doctorID, date, excludeBooked)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) ListRules(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	rules, err := h.service.ListRules(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	var req model.CreateRuleRequest
	if !handler.Bind(c, &req) {
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, rule)
}

func (h *Handler) ValidateRule(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	var req model.CreateRuleRequest
	if !handler.Bind(c, &req) {
		return
	}

	if err := h.service.ValidateNewRule(c.Request.Context(), doctorID, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"valid": true})
}

func (h *Handler) UpdateRule(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	ruleID, ok := handler.UUIDParam(c, "rule_id")
	if !ok {
		return
	}
	var req model.UpdateRuleRequest
	if !handler.Bind(c, &req) {
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), doctorID, ruleID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rule)
}

func (h *Handler) BlockSlot(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	var req model.SlotRequest
	if !handler.Bind(c, &req) {
		return
	}

	slot, err := h.service.BlockSlot(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slot)
}

func (h *Handler) UnblockSlot(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	var req model.SlotRequest
	if !handler.Bind(c, &req) {
		return
	}

	slot, err := h.service.UnblockSlot(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slot)
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	var req model.SlotRequest
	if !handler.Bind(c, &req) {
		return
	}

	slot, err := h.service.DeleteSlot(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, slot)
}

func (h *Handler) ListExceptions(c *gin.Context) {
	doctorID, ok := handler.UUIDParam(c, "doctor_id")
	if !ok {
		return
	}
	date, ok := handler.RequiredQuery(c, "date")
	if !ok {
		return
	}

	exc, err := h.service.ListExceptions(c.Request.Context(), doctorID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exc)
}
