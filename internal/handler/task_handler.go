package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/AntiAnoop/smartcode/internal/dto"
	"github.com/AntiAnoop/smartcode/internal/service"
	"github.com/AntiAnoop/smartcode/internal/utils"
)

// TaskHandler exposes task submission and retrieval endpoints.
type TaskHandler struct {
	service   service.TaskService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(service service.TaskService, validator *validator.Validate, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *TaskHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitTaskRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Submit(c.Context(), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task submitted", response)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	responses, err := h.service.List(c.Context(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tasks retrieved", responses)
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Get(c.Context(), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task retrieved", response)
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrTaskForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("task operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
