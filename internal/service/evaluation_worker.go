package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EvaluationSubject is the NATS subject evaluation jobs travel on.
const EvaluationSubject = "smartcode.evaluations"

const evaluationQueueGroup = "smartcode-evaluators"

type evaluationJob struct {
	TaskID string `json:"task_id"`
}

// NATSEvaluationQueue publishes evaluation jobs to NATS.
type NATSEvaluationQueue struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSEvaluationQueue constructs the queue producer.
func NewNATSEvaluationQueue(conn *nats.Conn, logger zerolog.Logger) *NATSEvaluationQueue {
	return &NATSEvaluationQueue{
		conn:   conn,
		logger: logger.With().Str("component", "evaluation_queue").Logger(),
	}
}

// Enqueue publishes a job for the given task.
func (q *NATSEvaluationQueue) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	payload, err := json.Marshal(evaluationJob{TaskID: taskID.String()})
	if err != nil {
		return fmt.Errorf("marshal evaluation job: %w", err)
	}

	if err := q.conn.Publish(EvaluationSubject, payload); err != nil {
		return fmt.Errorf("publish evaluation job: %w", err)
	}

	return nil
}

// EvaluationWorker consumes evaluation jobs and runs them through the task
// service. It preserves the pending -> evaluated | failed state contract of
// the inline path.
type EvaluationWorker struct {
	conn   *nats.Conn
	tasks  TaskService
	logger zerolog.Logger
}

// NewEvaluationWorker constructs the queue consumer.
func NewEvaluationWorker(conn *nats.Conn, tasks TaskService, logger zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		conn:   conn,
		tasks:  tasks,
		logger: logger.With().Str("component", "evaluation_worker").Logger(),
	}
}

// Start subscribes to the evaluation subject until ctx is cancelled. Jobs
// are spread across worker instances via a queue group.
func (w *EvaluationWorker) Start(ctx context.Context) error {
	subscription, err := w.conn.QueueSubscribe(EvaluationSubject, evaluationQueueGroup, func(msg *nats.Msg) {
		var job evaluationJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			w.logger.Error().Err(err).Msg("discarding malformed evaluation job")
			return
		}

		taskID, err := uuid.Parse(job.TaskID)
		if err != nil {
			w.logger.Error().Err(err).Str("task_id", job.TaskID).Msg("discarding job with invalid task id")
			return
		}

		w.tasks.RunEvaluation(ctx, taskID)
	})
	if err != nil {
		return fmt.Errorf("subscribe to evaluation jobs: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := subscription.Unsubscribe(); err != nil {
			w.logger.Warn().Err(err).Msg("unsubscribe evaluation worker")
		}
	}()

	return nil
}
