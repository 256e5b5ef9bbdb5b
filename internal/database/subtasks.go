package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/models"
)

// SubtaskRepository handles subtask database operations
type SubtaskRepository struct {
	db *DB
}

// NewSubtaskRepository creates a new subtask repository
func NewSubtaskRepository(db *DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

// Create inserts a new subtask row. Saving the same suggestion twice creates
// two rows with distinct ids; dedup is a UI concern, not enforced here.
func (r *SubtaskRepository) Create(ctx context.Context, subtask *models.Subtask) error {
	query := `
		INSERT INTO subtasks (id, task_id, title, completed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		subtask.ID,
		subtask.TaskID,
		subtask.Title,
		subtask.Completed,
		time.Now(),
	).Scan(&subtask.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subtask: %w", err)
	}

	return nil
}

// GetByID retrieves a subtask by ID
func (r *SubtaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subtask, error) {
	subtask := &models.Subtask{}

	query := `
		SELECT id, task_id, title, completed, created_at
		FROM subtasks
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&subtask.ID,
		&subtask.TaskID,
		&subtask.Title,
		&subtask.Completed,
		&subtask.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subtask not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subtask: %w", err)
	}

	return subtask, nil
}

// GetByTaskID retrieves all subtasks for a task, oldest first
func (r *SubtaskRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Subtask, error) {
	query := `
		SELECT id, task_id, title, completed, created_at
		FROM subtasks
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*models.Subtask
	for rows.Next() {
		subtask := &models.Subtask{}
		err := rows.Scan(
			&subtask.ID,
			&subtask.TaskID,
			&subtask.Title,
			&subtask.Completed,
			&subtask.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		subtasks = append(subtasks, subtask)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subtasks: %w", err)
	}

	return subtasks, nil
}

// SetCompleted sets the completed flag on a subtask
func (r *SubtaskRepository) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE subtasks SET completed = $2 WHERE id = $1`, id, completed)
	if err != nil {
		return fmt.Errorf("failed to update subtask: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("subtask not found")
	}

	return nil
}

// Delete deletes a subtask by ID
func (r *SubtaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("subtask not found")
	}

	return nil
}
