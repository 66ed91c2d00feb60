package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AntiAnoop/smartcode/internal/models"
)

// TaskRepository exposes persistence helpers for evaluation tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Task, error)
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)
	ApplyEvaluation(ctx context.Context, id uuid.UUID, score int, summary string, report datatypes.JSON) error
	MarkEvaluationFailed(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

// NewTaskRepository constructs a task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ApplyEvaluation writes score, summary, and report in one keyed UPDATE so a
// reader never observes a half-written evaluation.
func (r *taskRepository) ApplyEvaluation(ctx context.Context, id uuid.UUID, score int, summary string, report datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_score":         score,
			"ai_summary":       summary,
			"full_report_json": report,
		}).Error
}

func (r *taskRepository) MarkEvaluationFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("ai_summary", models.EvaluationFailedSummary).Error
}

func (r *taskRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("is_paid", true).Error
}
