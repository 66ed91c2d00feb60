package dto

import (
	"encoding/json"
	"time"

	"github.com/AntiAnoop/smartcode/internal/models"
)

// Task states surfaced to API consumers.
const (
	TaskStatusPending   = "pending"
	TaskStatusEvaluated = "evaluated"
	TaskStatusFailed    = "failed"
)

// SubmitTaskRequest represents the payload for submitting a new task.
// The title is validated for parity with the submission form but is not
// persisted; the task schema has no title column.
type SubmitTaskRequest struct {
	Title       string `json:"title" validate:"required,min=5"`
	Description string `json:"description" validate:"required,min=20"`
	CodeSnippet string `json:"code_snippet" validate:"required,min=50"`
}

// TaskResponse represents a task to API consumers. FullReport is only
// populated for paid tasks; locked tasks expose score and summary alone.
type TaskResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	CodeSnippet string          `json:"code_snippet"`
	Status      string          `json:"status"`
	IsPaid      bool            `json:"is_paid"`
	AIScore     *int            `json:"ai_score"`
	AISummary   *string         `json:"ai_summary"`
	FullReport  json.RawMessage `json:"full_report,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TaskSummaryResponse is the compact shape used by the dashboard list.
type TaskSummaryResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	IsPaid      bool      `json:"is_paid"`
	AIScore     *int      `json:"ai_score"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskStatus derives the user-facing evaluation state. A missing score means
// pending, never zero.
func TaskStatus(task models.Task) string {
	switch {
	case task.HasBeenEvaluated():
		return TaskStatusEvaluated
	case task.EvaluationFailed():
		return TaskStatusFailed
	default:
		return TaskStatusPending
	}
}

// NewTaskResponse builds a response DTO from a model, withholding the full
// report unless the task has been paid for.
func NewTaskResponse(task models.Task) TaskResponse {
	response := TaskResponse{
		ID:          task.ID.String(),
		Description: task.Description,
		CodeSnippet: task.CodeSnippet,
		Status:      TaskStatus(task),
		IsPaid:      task.IsPaid,
		AIScore:     task.AIScore,
		AISummary:   task.AISummary,
		CreatedAt:   task.CreatedAt,
	}

	if task.IsPaid && len(task.FullReportJSON) > 0 {
		response.FullReport = json.RawMessage(task.FullReportJSON)
	}

	return response
}

// NewTaskSummaryResponse builds the dashboard list entry for a task.
func NewTaskSummaryResponse(task models.Task) TaskSummaryResponse {
	return TaskSummaryResponse{
		ID:          task.ID.String(),
		Description: task.Description,
		Status:      TaskStatus(task),
		IsPaid:      task.IsPaid,
		AIScore:     task.AIScore,
		CreatedAt:   task.CreatedAt,
	}
}

// NewTaskSummaryResponseSlice converts a slice of tasks.
func NewTaskSummaryResponseSlice(tasks []models.Task) []TaskSummaryResponse {
	responses := make([]TaskSummaryResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskSummaryResponse(task))
	}
	return responses
}
