package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/AntiAnoop/smartcode/internal/dto"
	"github.com/AntiAnoop/smartcode/internal/repository"
	"github.com/AntiAnoop/smartcode/pkg/payments"
)

// ErrTaskAlreadyPaid indicates the task's report is already unlocked.
var ErrTaskAlreadyPaid = errors.New("task already paid")

// ErrCheckoutFailed indicates the payment provider rejected the session
// creation; no local state was touched.
var ErrCheckoutFailed = errors.New("checkout session could not be created")

// CheckoutService creates payment-checkout sessions for unlocking reports
// and exposes the receipts the webhook recorded for a task.
type CheckoutService interface {
	CreateSession(ctx context.Context, taskID uuid.UUID, userID string) (dto.CheckoutResponse, error)
	ListPayments(ctx context.Context, taskID uuid.UUID, userID string) ([]dto.PaymentResponse, error)
}

// CheckoutConfig carries the fixed pricing and redirect templates.
type CheckoutConfig struct {
	PriceCents int64
	BaseURL    string
}

type checkoutService struct {
	tasks    repository.TaskRepository
	payments repository.PaymentRepository
	provider payments.Provider
	logger   zerolog.Logger
	config   CheckoutConfig
}

// NewCheckoutService constructs a checkout service.
func NewCheckoutService(tasks repository.TaskRepository, paymentRepo repository.PaymentRepository, provider payments.Provider, logger zerolog.Logger, cfg CheckoutConfig) CheckoutService {
	if cfg.PriceCents <= 0 {
		cfg.PriceCents = 500
	}

	return &checkoutService{
		tasks:    tasks,
		payments: paymentRepo,
		provider: provider,
		logger:   logger.With().Str("component", "checkout_service").Logger(),
		config:   cfg,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, taskID uuid.UUID, userID string) (dto.CheckoutResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckoutResponse{}, ErrTaskNotFound
		}
		return dto.CheckoutResponse{}, err
	}

	if task.UserID != userID {
		return dto.CheckoutResponse{}, ErrTaskForbidden
	}

	if task.IsPaid {
		return dto.CheckoutResponse{}, ErrTaskAlreadyPaid
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutInput{
		TaskID:      task.ID.String(),
		ProductName: "Smart Code Evaluation - Full Report",
		Description: "Detailed code analysis, security audit, and refactoring.",
		UnitAmount:  s.config.PriceCents,
		SuccessURL:  fmt.Sprintf("%s/task/%s?success=true", s.config.BaseURL, task.ID),
		CancelURL:   fmt.Sprintf("%s/task/%s?canceled=true", s.config.BaseURL, task.ID),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("create checkout session")
		return dto.CheckoutResponse{}, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}

	return dto.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// ListPayments returns the ledger entries recorded for a task, restricted to
// its owner.
func (s *checkoutService) ListPayments(ctx context.Context, taskID uuid.UUID, userID string) ([]dto.PaymentResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.UserID != userID {
		return nil, ErrTaskForbidden
	}

	records, err := s.payments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewPaymentResponseSlice(records), nil
}
