package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AntiAnoop/smartcode/internal/models"
)

// PaymentRepository exposes persistence helpers for the payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Payment, error)
}

// NewPaymentRepository constructs a payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

type paymentRepository struct {
	db *gorm.DB
}

// Create inserts a payment record. Redelivered webhook events carry the same
// provider session id, so conflicts on it are silently skipped.
func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_session_id"}},
			DoNothing: true,
		}).
		Create(payment).Error
}

func (r *paymentRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
