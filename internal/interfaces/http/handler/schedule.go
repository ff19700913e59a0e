package handler

import (
	"time"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleHandler exposes the admin CRUD surface for subscription schedules
type ScheduleHandler struct {
	BaseHandler
	schedules *subapp.ScheduleService
	logger    *zap.Logger
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(schedules *subapp.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, logger: logger}
}

// RegisterRoutes registers the schedule endpoints
func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/schedules")
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.GET("/:id", h.Get)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
	admin.POST("/:id/variants", h.AttachVariant)
}

// ScheduleRequest is the create/update payload for a schedule
type ScheduleRequest struct {
	Name             string     `json:"name" binding:"required"`
	DurationInterval string     `json:"duration_interval" binding:"required,oneof=day week month year"`
	DurationCount    int        `json:"duration_count" binding:"required,min=1"`
	BillingInterval  string     `json:"billing_interval" binding:"required,oneof=day week month year"`
	BillingCount     int        `json:"billing_count" binding:"required,min=1"`
	DownPayment      int64      `json:"down_payment" binding:"min=0"`
	StartMoment      string     `json:"start_moment" binding:"omitempty,oneof=time_of_purchase start_of_billing_interval fixed_start_date"`
	FixedStartDate   *time.Time `json:"fixed_start_date"`
	UseProration     bool       `json:"use_proration"`
	AutoRenew        bool       `json:"auto_renew"`
}

func (r ScheduleRequest) toInput() subapp.CreateScheduleInput {
	return subapp.CreateScheduleInput{
		Name:             r.Name,
		DurationInterval: subscription.Interval(r.DurationInterval),
		DurationCount:    r.DurationCount,
		BillingInterval:  subscription.Interval(r.BillingInterval),
		BillingCount:     r.BillingCount,
		DownPayment:      r.DownPayment,
		StartMoment:      subscription.StartMoment(r.StartMoment),
		FixedStartDate:   r.FixedStartDate,
		UseProration:     r.UseProration,
		AutoRenew:        r.AutoRenew,
	}
}

// AttachVariantRequest attaches a product variant to a schedule
type AttachVariantRequest struct {
	ProductVariantID string `json:"product_variant_id" binding:"required,uuid"`
}

// Create creates a schedule
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sched, err := h.schedules.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, sched)
}

// List returns all schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, schedules)
}

// Get returns one schedule
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	sched, err := h.schedules.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, sched)
}

// Update replaces a schedule's settings
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sched, err := h.schedules.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, sched)
}

// Delete removes a schedule
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), id); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AttachVariant attaches a product variant to a schedule
func (h *ScheduleHandler) AttachVariant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	var req AttachVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	variantID, err := uuid.Parse(req.ProductVariantID)
	if err != nil {
		h.BadRequest(c, "product_variant_id must be a UUID")
		return
	}

	if err := h.schedules.AttachVariant(c.Request.Context(), id, variantID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
