package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskpilot/api/internal/models"
)

// EmbeddingRepository handles embedding record database operations.
// Records are upsert-only: one current vector per task, replaced on every
// refresh. Two concurrent refreshes for the same task race on the upsert and
// last write wins; there is no optimistic-concurrency token.
type EmbeddingRepository struct {
	db *DB
}

// NewEmbeddingRepository creates a new embedding repository
func NewEmbeddingRepository(db *DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert stores the current embedding for a task, replacing any previous vector
func (r *EmbeddingRepository) Upsert(ctx context.Context, record *models.EmbeddingRecord) error {
	query := `
		INSERT INTO task_embeddings (task_id, vector, model, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_id) DO UPDATE SET
			vector = EXCLUDED.vector,
			model = EXCLUDED.model,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		record.TaskID,
		pq.Array(record.Vector),
		record.Model,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	record.UpdatedAt = now

	return nil
}

// GetByTaskID retrieves the current embedding record for a task
func (r *EmbeddingRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.EmbeddingRecord, error) {
	record := &models.EmbeddingRecord{}
	var vector pq.Float64Array

	query := `
		SELECT task_id, vector, model, updated_at
		FROM task_embeddings
		WHERE task_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, taskID).Scan(
		&record.TaskID,
		&vector,
		&record.Model,
		&record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	record.Vector = []float64(vector)
	return record, nil
}

// TaskEmbedding pairs a task with its current embedding vector for ranking
type TaskEmbedding struct {
	Task   *models.Task
	Vector []float64
	Model  string
}

// GetByUserID retrieves all of a user's tasks that have a current embedding,
// paired with their vectors. Selecting by owner here is what keeps search
// results from ever crossing user boundaries.
func (r *EmbeddingRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*TaskEmbedding, error) {
	query := `
		SELECT t.id, t.user_id, t.title, t.priority, t.status, t.created_at, t.updated_at,
		       e.vector, e.model
		FROM tasks t
		JOIN task_embeddings e ON e.task_id = t.id
		WHERE t.user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var results []*TaskEmbedding
	for rows.Next() {
		task := &models.Task{}
		var vector pq.Float64Array
		var model string

		err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Priority,
			&task.Status,
			&task.CreatedAt,
			&task.UpdatedAt,
			&vector,
			&model,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}

		results = append(results, &TaskEmbedding{
			Task:   task,
			Vector: []float64(vector),
			Model:  model,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	return results, nil
}
