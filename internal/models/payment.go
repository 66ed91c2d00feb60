package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is an append-only record of a completed checkout. It is evidence,
// not the unlock gate: the task's IsPaid flag gates the full report. The
// unique index on ProviderSessionID keeps redelivered webhook events from
// producing duplicate ledger rows.
type Payment struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID            uuid.UUID `gorm:"type:uuid;index;not null" json:"task_id"`
	ProviderSessionID string    `gorm:"size:255;uniqueIndex;not null" json:"provider_session_id"`
	Status            string    `gorm:"size:64" json:"status"`
	AmountTotal       int64     `gorm:"not null;default:0" json:"amount_total"`
	CreatedAt         time.Time `json:"created_at"`
}

// BeforeCreate assigns an identifier when none is provided.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
