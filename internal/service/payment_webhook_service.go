package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AntiAnoop/smartcode/internal/models"
	"github.com/AntiAnoop/smartcode/internal/observability"
	"github.com/AntiAnoop/smartcode/internal/repository"
	"github.com/AntiAnoop/smartcode/pkg/payments"
)

// ErrUnlockFailed indicates the paid flag could not be written. The webhook
// responds with a server error so the provider redelivers the event.
var ErrUnlockFailed = errors.New("failed to unlock task")

// PaymentWebhookService applies asynchronous payment-confirmation events.
type PaymentWebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

type paymentWebhookService struct {
	tasks       repository.TaskRepository
	payments    repository.PaymentRepository
	provider    payments.Provider
	taskService TaskService
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewPaymentWebhookService constructs a webhook service.
func NewPaymentWebhookService(tasks repository.TaskRepository, paymentRepo repository.PaymentRepository, provider payments.Provider, taskService TaskService, logger zerolog.Logger) PaymentWebhookService {
	return &paymentWebhookService{
		tasks:       tasks,
		payments:    paymentRepo,
		provider:    provider,
		taskService: taskService,
		logger:      logger.With().Str("component", "payment_webhook_service").Logger(),
		tracer:      otel.Tracer("github.com/AntiAnoop/smartcode/internal/service/webhook"),
	}
}

// HandleEvent verifies, filters, correlates, applies, and records a webhook
// delivery. Signature failures mutate nothing. Unlocking the task is the
// primary effect; the ledger insert is auxiliary and its failure is logged
// but does not fail the delivery.
func (s *paymentWebhookService) HandleEvent(parent context.Context, payload []byte, signature string) error {
	event, err := s.provider.VerifyEvent(payload, signature)
	if err != nil {
		observability.WebhookEvents().WithLabelValues("unknown", "rejected").Inc()
		s.logger.Warn().Err(err).Msg("webhook rejected")
		return err
	}

	if event.Type != payments.EventCheckoutCompleted {
		observability.WebhookEvents().WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}

	taskID, ok := taskIDFromMetadata(event.Metadata)
	if !ok {
		observability.WebhookEvents().WithLabelValues(event.Type, "ignored").Inc()
		s.logger.Warn().Str("session_id", event.SessionID).Msg("checkout event without task id metadata")
		return nil
	}

	ctx, span := s.tracer.Start(parent, "webhook.checkout_completed", trace.WithAttributes(
		attribute.String("task_id", taskID.String()),
		attribute.String("session_id", event.SessionID),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.WebhookEvents().WithLabelValues(event.Type, "ignored").Inc()
			s.logger.Warn().Str("task_id", taskID.String()).Msg("checkout event for unknown task")
			return nil
		}
		span.RecordError(err)
		observability.WebhookEvents().WithLabelValues(event.Type, "failed").Inc()
		return fmt.Errorf("%w: %v", ErrUnlockFailed, err)
	}

	if err := s.tasks.MarkPaid(ctx, task.ID); err != nil {
		span.RecordError(err)
		observability.WebhookEvents().WithLabelValues(event.Type, "failed").Inc()
		return fmt.Errorf("%w: %v", ErrUnlockFailed, err)
	}

	s.logger.Info().Str("task_id", task.ID.String()).Str("session_id", event.SessionID).Msg("task unlocked")

	payment := models.Payment{
		TaskID:            task.ID,
		ProviderSessionID: event.SessionID,
		Status:            event.PaymentStatus,
		AmountTotal:       event.AmountTotal,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("session_id", event.SessionID).Msg("record payment")
	}

	if s.taskService != nil {
		s.taskService.InvalidateListCache(ctx, task.UserID)
	}

	observability.WebhookEvents().WithLabelValues(event.Type, "applied").Inc()
	return nil
}

func taskIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata["task_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
