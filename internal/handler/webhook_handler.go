package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/AntiAnoop/smartcode/internal/service"
	"github.com/AntiAnoop/smartcode/pkg/payments"
)

// WebhookHandler receives asynchronous payment-confirmation events. The
// endpoint is unauthenticated; the event signature is the sole
// authentication mechanism.
type WebhookHandler struct {
	service service.PaymentWebhookService
	logger  zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(service service.PaymentWebhookService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/stripe", h.handleStripeEvent)
}

func (h *WebhookHandler) handleStripeEvent(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	err := h.service.HandleEvent(c.Context(), payload, signature)
	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusOK)
	case errors.Is(err, payments.ErrInvalidSignature):
		return c.SendStatus(fiber.StatusBadRequest)
	case errors.Is(err, service.ErrUnlockFailed):
		// Server error so the provider redelivers the event.
		return c.SendStatus(fiber.StatusInternalServerError)
	default:
		h.logger.Error().Err(err).Msg("webhook processing failed")
		return c.SendStatus(fiber.StatusBadRequest)
	}
}
