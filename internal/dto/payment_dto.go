package dto

import (
	"time"

	"github.com/AntiAnoop/smartcode/internal/models"
)

// CheckoutResponse carries the hosted checkout session the caller should
// redirect to.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentResponse is a receipt entry from the payment ledger.
type PaymentResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Status      string    `json:"status"`
	AmountTotal int64     `json:"amount_total"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPaymentResponseSlice converts ledger rows into receipt entries.
func NewPaymentResponseSlice(payments []models.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, PaymentResponse{
			ID:          payment.ID.String(),
			SessionID:   payment.ProviderSessionID,
			Status:      payment.Status,
			AmountTotal: payment.AmountTotal,
			CreatedAt:   payment.CreatedAt,
		})
	}
	return responses
}

// TaskStatusFrame is pushed over the task status websocket whenever the
// evaluation or payment state changes.
type TaskStatusFrame struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	IsPaid bool   `json:"is_paid"`
}
