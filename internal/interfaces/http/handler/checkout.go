package handler

import (
	"time"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutHandler exposes the storefront checkout surface: payment intent
// creation and subscription pricing previews
type CheckoutHandler struct {
	BaseHandler
	intents *subapp.IntentService
	pricing *subapp.PricingService
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(intents *subapp.IntentService, pricing *subapp.PricingService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{intents: intents, pricing: pricing, logger: logger}
}

// RegisterRoutes registers the checkout endpoints
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	api := rg.Group("/api")
	api.POST("/payment-intent", h.CreatePaymentIntent)
	api.GET("/subscription-pricing", h.SubscriptionPricing)
}

// CreatePaymentIntentRequest identifies the session asking for an intent
type CreatePaymentIntentRequest struct {
	CustomerID   string `json:"customer_id" binding:"required,uuid"`
	LanguageCode string `json:"language_code"`
}

// CreatePaymentIntent creates a Stripe payment intent for the session's
// active order
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	channelToken := c.GetHeader("X-Channel-Token")
	if channelToken == "" {
		h.BadRequest(c, "X-Channel-Token header is required")
		return
	}

	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "customer_id must be a UUID")
		return
	}

	reqCtx := channel.NewRequestContext(channelToken, req.LanguageCode)
	reqCtx.CustomerID = &customerID

	result, err := h.intents.CreatePaymentIntent(c.Request.Context(), reqCtx)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, result)
}

// SubscriptionPricingRequest asks for a pricing preview of one variant
type SubscriptionPricingRequest struct {
	VariantID        string `form:"variant_id" binding:"required,uuid"`
	UnitPriceWithTax int64  `form:"unit_price" binding:"required,min=0"`
}

// SubscriptionPricing returns the pricing breakdown a subscription for the
// given variant would have if purchased now
func (h *CheckoutHandler) SubscriptionPricing(c *gin.Context) {
	var req SubscriptionPricingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		h.BadRequest(c, "variant_id must be a UUID")
		return
	}

	preview, err := h.pricing.Preview(c.Request.Context(), variantID, req.UnitPriceWithTax, time.Now())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, preview)
}
