package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EvaluationFailedSummary is written to a task when the AI evaluation could
// not complete. The score stays nil, so the task still reads as unscored.
const EvaluationFailedSummary = "AI evaluation failed. Please try again."

// Task represents a submitted code snippet together with its evaluation and
// payment state. Tasks are only visible to their owning user.
type Task struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	CodeSnippet    string         `gorm:"type:text;not null" json:"code_snippet"`
	IsPaid         bool           `gorm:"not null;default:false" json:"is_paid"`
	AIScore        *int           `json:"ai_score"`
	AISummary      *string        `gorm:"type:text" json:"ai_summary"`
	FullReportJSON datatypes.JSON `json:"full_report_json"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BeforeCreate assigns an identifier when none is provided.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// HasBeenEvaluated reports whether the evaluation wrote a score. A task with
// the failure summary but no score counts as not evaluated.
func (t Task) HasBeenEvaluated() bool {
	return t.AIScore != nil
}

// EvaluationFailed reports whether the task carries the failure summary.
func (t Task) EvaluationFailed() bool {
	return t.AIScore == nil && t.AISummary != nil && *t.AISummary == EvaluationFailedSummary
}
