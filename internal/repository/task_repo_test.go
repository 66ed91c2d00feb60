package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AntiAnoop/smartcode/internal/models"
	"github.com/AntiAnoop/smartcode/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Task{}, &models.Payment{}))
	return db
}

func TestTaskRepositoryCreateAssignsID(t *testing.T) {
	repo := repository.NewTaskRepository(openTestDB(t))

	task := models.Task{
		UserID:      uuid.NewString(),
		Description: "Implement a rate limiter for the public API.",
		CodeSnippet: "func Allow(key string) bool { return buckets.Take(key, 1) }",
	}
	require.NoError(t, repo.Create(context.Background(), &task))
	require.NotEqual(t, uuid.Nil, task.ID)

	loaded, err := repo.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, task.UserID, loaded.UserID)
	require.False(t, loaded.IsPaid)
	require.Nil(t, loaded.AIScore)
}

func TestTaskRepositoryApplyEvaluationRoundTripsReport(t *testing.T) {
	repo := repository.NewTaskRepository(openTestDB(t))

	task := models.Task{
		UserID:      "user-1",
		Description: "Implement a rate limiter for the public API.",
		CodeSnippet: "func Allow(key string) bool { return buckets.Take(key, 1) }",
	}
	require.NoError(t, repo.Create(context.Background(), &task))

	report := datatypes.JSON(`{"score":64,"analysis":{"strengths":["simple"],"weaknesses":[],"security_risks":[],"refactored_code":""}}`)
	require.NoError(t, repo.ApplyEvaluation(context.Background(), task.ID, 64, "Workable but untested.", report))

	loaded, err := repo.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AIScore)
	require.Equal(t, 64, *loaded.AIScore)
	require.Equal(t, "Workable but untested.", *loaded.AISummary)
	require.JSONEq(t, string(report), string(loaded.FullReportJSON))
	require.True(t, loaded.HasBeenEvaluated())
}

func TestTaskRepositoryMarkEvaluationFailedLeavesScoreEmpty(t *testing.T) {
	repo := repository.NewTaskRepository(openTestDB(t))

	task := models.Task{
		UserID:      "user-1",
		Description: "Implement a rate limiter for the public API.",
		CodeSnippet: "func Allow(key string) bool { return buckets.Take(key, 1) }",
	}
	require.NoError(t, repo.Create(context.Background(), &task))
	require.NoError(t, repo.MarkEvaluationFailed(context.Background(), task.ID))

	loaded, err := repo.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.Nil(t, loaded.AIScore)
	require.Equal(t, models.EvaluationFailedSummary, *loaded.AISummary)
	require.True(t, loaded.EvaluationFailed())
	require.False(t, loaded.HasBeenEvaluated())
}

func TestTaskRepositoryListByUserNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewTaskRepository(db)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		task := models.Task{
			ID:          uuid.New(),
			UserID:      "user-1",
			Description: "Implement a rate limiter for the public API.",
			CodeSnippet: "func Allow(key string) bool { return buckets.Take(key, 1) }",
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&task).Error)
	}

	other := models.Task{
		UserID:      "user-2",
		Description: "Implement a rate limiter for the public API.",
		CodeSnippet: "func Allow(key string) bool { return buckets.Take(key, 1) }",
	}
	require.NoError(t, db.Create(&other).Error)

	tasks, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i := 1; i < len(tasks); i++ {
		require.False(t, tasks[i].CreatedAt.After(tasks[i-1].CreatedAt))
	}
}

func TestPaymentRepositorySkipsDuplicateSessions(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewPaymentRepository(db)
	taskID := uuid.New()

	first := models.Payment{TaskID: taskID, ProviderSessionID: "cs_test_once", Status: "paid", AmountTotal: 500}
	require.NoError(t, repo.Create(context.Background(), &first))

	duplicate := models.Payment{TaskID: taskID, ProviderSessionID: "cs_test_once", Status: "paid", AmountTotal: 500}
	require.NoError(t, repo.Create(context.Background(), &duplicate))

	payments, err := repo.ListByTask(context.Background(), taskID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
}
