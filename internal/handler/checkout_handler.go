package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/AntiAnoop/smartcode/internal/service"
	"github.com/AntiAnoop/smartcode/internal/utils"
)

// CheckoutHandler exposes the payment-checkout initiation endpoint.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler constructs the handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("component", "checkout_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *CheckoutHandler) Register(router fiber.Router) {
	router.Post("/:id/checkout", h.createSession)
	router.Get("/:id/payments", h.listPayments)
}

func (h *CheckoutHandler) createSession(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.CreateSession(c.Context(), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "checkout session created", response)
}

func (h *CheckoutHandler) listPayments(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	responses, err := h.service.ListPayments(c.Context(), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "payments retrieved", responses)
}

func (h *CheckoutHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrTaskForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrTaskAlreadyPaid):
		return utils.SendError(c, fiber.StatusConflict, "task already paid")
	case errors.Is(err, service.ErrCheckoutFailed):
		return utils.SendError(c, fiber.StatusBadGateway, "payment provider unavailable")
	default:
		h.logger.Error().Err(err).Msg("checkout operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
