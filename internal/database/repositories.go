package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations.
// Enables mock implementations in handler and worker tests.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, status *models.TaskStatus) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubtaskRepositoryInterface defines the interface for subtask repository operations
type SubtaskRepositoryInterface interface {
	Create(ctx context.Context, subtask *models.Subtask) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subtask, error)
	GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Subtask, error)
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmbeddingRepositoryInterface defines the interface for embedding repository operations
type EmbeddingRepositoryInterface interface {
	Upsert(ctx context.Context, record *models.EmbeddingRecord) error
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.EmbeddingRecord, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*TaskEmbedding, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface      = (*TaskRepository)(nil)
	_ SubtaskRepositoryInterface   = (*SubtaskRepository)(nil)
	_ EmbeddingRepositoryInterface = (*EmbeddingRepository)(nil)
)
