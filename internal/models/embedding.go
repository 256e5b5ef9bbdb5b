package models

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingRecord holds the current semantic vector for a task. There is at
// most one record per task: a new embedding attempt overwrites the previous
// vector rather than appending. Records are removed only when the task itself
// is deleted (cascade).
type EmbeddingRecord struct {
	TaskID    uuid.UUID `json:"task_id"`
	Vector    []float64 `json:"vector"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}
