package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AntiAnoop/smartcode/internal/dto"
	"github.com/AntiAnoop/smartcode/internal/models"
	"github.com/AntiAnoop/smartcode/internal/repository"
	"github.com/AntiAnoop/smartcode/pkg/ai"
)

// ErrTaskNotFound indicates the task cannot be located.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskForbidden indicates the caller does not own the task.
var ErrTaskForbidden = errors.New("forbidden")

// TaskService exposes task submission and retrieval operations.
type TaskService interface {
	Submit(ctx context.Context, userID string, payload dto.SubmitTaskRequest) (dto.TaskResponse, error)
	Get(ctx context.Context, id uuid.UUID, viewerID string) (dto.TaskResponse, error)
	List(ctx context.Context, userID string) ([]dto.TaskSummaryResponse, error)
	RunEvaluation(ctx context.Context, taskID uuid.UUID)
	InvalidateListCache(ctx context.Context, userID string)
}

// EvaluationQueue hands evaluation jobs to an out-of-band consumer.
type EvaluationQueue interface {
	Enqueue(ctx context.Context, taskID uuid.UUID) error
}

// TaskServiceConfig carries tuning knobs for the task service.
type TaskServiceConfig struct {
	EvaluationTimeout time.Duration
	ListCacheTTL      time.Duration
}

type taskService struct {
	tasks     repository.TaskRepository
	evaluator ai.Evaluator
	queue     EvaluationQueue
	cache     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	config    TaskServiceConfig
}

// NewTaskService constructs a task service. The queue is optional: without
// one, evaluation runs inline before Submit returns, which couples
// submission latency to model latency.
func NewTaskService(tasks repository.TaskRepository, evaluator ai.Evaluator, queue EvaluationQueue, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger, cfg TaskServiceConfig) TaskService {
	if cfg.EvaluationTimeout <= 0 {
		cfg.EvaluationTimeout = time.Minute
	}
	if cfg.ListCacheTTL <= 0 {
		cfg.ListCacheTTL = 30 * time.Second
	}

	return &taskService{
		tasks:     tasks,
		evaluator: evaluator,
		queue:     queue,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "task_service").Logger(),
		tracer:    otel.Tracer("github.com/AntiAnoop/smartcode/internal/service/task"),
		config:    cfg,
	}
}

func (s *taskService) Submit(ctx context.Context, userID string, payload dto.SubmitTaskRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		UserID:      userID,
		Description: payload.Description,
		CodeSnippet: payload.CodeSnippet,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, fmt.Errorf("create task: %w", err)
	}

	s.InvalidateListCache(ctx, userID)

	if s.queue != nil {
		err := s.queue.Enqueue(ctx, task.ID)
		if err == nil {
			return dto.NewTaskResponse(task), nil
		}
		s.logger.Warn().Err(err).Str("task_id", task.ID.String()).Msg("enqueue failed, evaluating inline")
	}

	s.RunEvaluation(ctx, task.ID)

	evaluated, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return dto.NewTaskResponse(task), nil
	}
	return dto.NewTaskResponse(evaluated), nil
}

func (s *taskService) Get(ctx context.Context, id uuid.UUID, viewerID string) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if task.UserID != viewerID {
		return dto.TaskResponse{}, ErrTaskForbidden
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) List(ctx context.Context, userID string) ([]dto.TaskSummaryResponse, error) {
	cacheKey := taskListCacheKey(userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.TaskSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Str("user_id", userID).Msg("task list cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read task list cache")
		}
	}

	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := dto.NewTaskSummaryResponseSlice(tasks)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.config.ListCacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store task list cache")
			}
		}
	}

	return responses, nil
}

// RunEvaluation grades a task and persists the outcome. All evaluation
// failures are absorbed into task state: the task either carries a full
// result or the failure summary, never an error to the caller. One model
// call, no retries.
func (s *taskService) RunEvaluation(parent context.Context, taskID uuid.UUID) {
	ctx, span := s.tracer.Start(parent, "task.evaluate", trace.WithAttributes(
		attribute.String("task_id", taskID.String()),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("load task for evaluation")
		return
	}

	// Redelivered jobs are skipped rather than re-graded.
	if task.HasBeenEvaluated() {
		return
	}

	if s.evaluator == nil {
		s.logger.Error().Str("task_id", taskID.String()).Msg("no evaluator configured")
		s.markFailed(ctx, task)
		return
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.config.EvaluationTimeout)
	defer cancel()

	result, err := s.evaluator.Evaluate(evalCtx, ai.EvaluationInput{
		Description: task.Description,
		CodeSnippet: task.CodeSnippet,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("evaluation failed")
		s.markFailed(ctx, task)
		return
	}

	if err := s.tasks.ApplyEvaluation(ctx, task.ID, result.Score, result.Summary, datatypes.JSON(result.Raw)); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("store evaluation result")
		s.markFailed(ctx, task)
		return
	}

	s.InvalidateListCache(ctx, task.UserID)
}

// markFailed performs the best-effort fallback write. If it also fails the
// task stays pending indefinitely; that degraded outcome is only logged.
func (s *taskService) markFailed(ctx context.Context, task models.Task) {
	if err := s.tasks.MarkEvaluationFailed(ctx, task.ID); err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("write failure summary")
		return
	}
	s.InvalidateListCache(ctx, task.UserID)
}

// InvalidateListCache drops the cached dashboard list for a user.
func (s *taskService) InvalidateListCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, taskListCacheKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate task list cache")
	}
}

func taskListCacheKey(userID string) string {
	return fmt.Sprintf("tasks:user:%s", userID)
}
