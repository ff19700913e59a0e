package handler

import (
	"io"
	"net/http"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps webhook payload reads; Stripe events are small
const maxWebhookBody = 1 << 20

// StripeWebhookHandler receives Stripe webhook deliveries per channel.
// The endpoint is called by Stripe and carries no platform authentication;
// the signature check inside the service is the authentication.
type StripeWebhookHandler struct {
	BaseHandler
	service *subapp.WebhookService
	logger  *zap.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(service *subapp.WebhookService, logger *zap.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{service: service, logger: logger}
}

// RegisterRoutes registers the webhook endpoint
func (h *StripeWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/stripe/webhook/:channelToken", h.Handle)
}

// Handle processes one webhook delivery. Stripe retries on any non-2xx
// response: a rejected delivery (bad signature, unknown channel) gets a 400
// so retries stop, a processing failure gets a 500 so Stripe redelivers.
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	channelToken := c.Param("channelToken")
	signature := c.GetHeader("Stripe-Signature")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}

	result, err := h.service.ProcessWebhook(c.Request.Context(), channelToken, payload, signature)
	if err != nil {
		if result == nil {
			h.BadRequest(c, "Webhook rejected")
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "Webhook processing failed"))
		return
	}

	h.Success(c, result)
}
