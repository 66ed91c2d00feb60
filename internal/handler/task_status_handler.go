package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AntiAnoop/smartcode/internal/dto"
	"github.com/AntiAnoop/smartcode/internal/service"
)

var statusPollInterval = 2 * time.Second

// TaskStatusHandler streams evaluation/payment state changes for a task over
// a websocket. The checkout redirect races the payment webhook, so the task
// page subscribes here instead of assuming the redirect implies unlock.
type TaskStatusHandler struct {
	service service.TaskService
	logger  zerolog.Logger
}

// NewTaskStatusHandler constructs the handler.
func NewTaskStatusHandler(service service.TaskService, logger zerolog.Logger) *TaskStatusHandler {
	return &TaskStatusHandler{
		service: service,
		logger:  logger.With().Str("component", "task_status_handler").Logger(),
	}
}

// Register wires the websocket upgrade into the router group.
func (h *TaskStatusHandler) Register(router fiber.Router) {
	router.Use("/:id/status", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/status", websocket.New(h.handleConnection))
}

func (h *TaskStatusHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		return
	}

	taskID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid task id"))
		return
	}

	// Reader goroutine: the client never sends frames, but reading is how
	// we learn the connection is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	var last dto.TaskStatusFrame
	sent := false

	for {
		task, err := h.service.Get(context.Background(), taskID, userID)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "task unavailable"))
			return
		}

		frame := dto.TaskStatusFrame{TaskID: taskID.String(), Status: task.Status, IsPaid: task.IsPaid}
		if !sent || frame != last {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			last = frame
			sent = true
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func websocketUserID(conn *websocket.Conn) string {
	if v := conn.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
