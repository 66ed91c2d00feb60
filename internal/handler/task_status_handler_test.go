package handler

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AntiAnoop/smartcode/internal/dto"
	"github.com/AntiAnoop/smartcode/internal/service"
)

type statusStreamService struct {
	mu       sync.Mutex
	response dto.TaskResponse
	err      error
}

var _ service.TaskService = (*statusStreamService)(nil)

func (s *statusStreamService) set(response dto.TaskResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.response = response
}

func (s *statusStreamService) Get(ctx context.Context, id uuid.UUID, viewerID string) (dto.TaskResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return dto.TaskResponse{}, s.err
	}
	return s.response, nil
}

func (s *statusStreamService) Submit(ctx context.Context, userID string, payload dto.SubmitTaskRequest) (dto.TaskResponse, error) {
	return dto.TaskResponse{}, nil
}

func (s *statusStreamService) List(ctx context.Context, userID string) ([]dto.TaskSummaryResponse, error) {
	return nil, nil
}

func (s *statusStreamService) RunEvaluation(ctx context.Context, taskID uuid.UUID) {}

func (s *statusStreamService) InvalidateListCache(ctx context.Context, userID string) {}

func shortenStatusPoll(t *testing.T) {
	t.Helper()

	previous := statusPollInterval
	statusPollInterval = 20 * time.Millisecond
	t.Cleanup(func() { statusPollInterval = previous })
}

func newStatusStreamApp(svc service.TaskService) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	group := app.Group("/api/v1/tasks", func(c *fiber.Ctx) error {
		if user := c.Get("X-Test-User"); user != "" {
			c.Locals("user_id", user)
		}
		return c.Next()
	})
	NewTaskStatusHandler(svc, zerolog.Nop()).Register(group)
	return app
}

func startStatusStreamServer(t *testing.T, svc service.TaskService) string {
	t.Helper()

	app := newStatusStreamApp(svc)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(listener) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return listener.Addr().String()
}

func dialStatusStream(t *testing.T, addr, taskID, user string) *fastws.Conn {
	t.Helper()

	header := http.Header{}
	if user != "" {
		header.Set("X-Test-User", user)
	}

	url := "ws://" + addr + "/api/v1/tasks/" + taskID + "/status"

	var conn *fastws.Conn
	var err error
	for attempt := 0; attempt < 40; attempt++ {
		conn, _, err = fastws.DefaultDialer.Dial(url, header)
		if err == nil {
			t.Cleanup(func() { _ = conn.Close() })
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
			return conn
		}
		time.Sleep(25 * time.Millisecond)
	}

	require.NoError(t, err)
	return nil
}

func TestTaskStatusStreamRequiresUpgrade(t *testing.T) {
	app := newStatusStreamApp(&statusStreamService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+uuid.NewString()+"/status", nil)
	req.Header.Set("X-Test-User", "owner")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, res.StatusCode)
}

func TestTaskStatusStreamEmitsFrameOnPaidFlagChange(t *testing.T) {
	shortenStatusPoll(t)

	taskID := uuid.New()
	svc := &statusStreamService{}
	svc.set(dto.TaskResponse{ID: taskID.String(), Status: dto.TaskStatusPending, IsPaid: false})

	addr := startStatusStreamServer(t, svc)
	conn := dialStatusStream(t, addr, taskID.String(), "owner")

	var first dto.TaskStatusFrame
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, taskID.String(), first.TaskID)
	require.Equal(t, dto.TaskStatusPending, first.Status)
	require.False(t, first.IsPaid)

	// The payment webhook flips the flag out of band; the stream must push
	// the change without the client re-requesting.
	svc.set(dto.TaskResponse{ID: taskID.String(), Status: dto.TaskStatusEvaluated, IsPaid: true})

	var second dto.TaskStatusFrame
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, dto.TaskStatusEvaluated, second.Status)
	require.True(t, second.IsPaid)
}

func TestTaskStatusStreamSkipsUnchangedFrames(t *testing.T) {
	shortenStatusPoll(t)

	taskID := uuid.New()
	svc := &statusStreamService{}
	svc.set(dto.TaskResponse{ID: taskID.String(), Status: dto.TaskStatusEvaluated, IsPaid: false})

	addr := startStatusStreamServer(t, svc)
	conn := dialStatusStream(t, addr, taskID.String(), "owner")

	var first dto.TaskStatusFrame
	require.NoError(t, conn.ReadJSON(&first))

	// Several poll intervals with no state change must not produce frames.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var extra dto.TaskStatusFrame
	err := conn.ReadJSON(&extra)
	require.Error(t, err)
	netErr, ok := err.(net.Error)
	require.True(t, ok)
	require.True(t, netErr.Timeout())
}

func TestTaskStatusStreamClosesUnauthenticatedConnection(t *testing.T) {
	shortenStatusPoll(t)

	addr := startStatusStreamServer(t, &statusStreamService{})
	conn := dialStatusStream(t, addr, uuid.NewString(), "")

	var frame dto.TaskStatusFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err)
	require.True(t, fastws.IsCloseError(err, fastws.ClosePolicyViolation))
}

func TestTaskStatusStreamClosesOnMalformedTaskID(t *testing.T) {
	shortenStatusPoll(t)

	addr := startStatusStreamServer(t, &statusStreamService{})
	conn := dialStatusStream(t, addr, "not-a-uuid", "owner")

	var frame dto.TaskStatusFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err)
	require.True(t, fastws.IsCloseError(err, fastws.CloseUnsupportedData))
}

func TestTaskStatusStreamClosesWhenTaskUnavailable(t *testing.T) {
	shortenStatusPoll(t)

	svc := &statusStreamService{err: service.ErrTaskNotFound}
	addr := startStatusStreamServer(t, svc)
	conn := dialStatusStream(t, addr, uuid.NewString(), "owner")

	var frame dto.TaskStatusFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err)
	require.True(t, fastws.IsCloseError(err, fastws.CloseNormalClosure))
}
