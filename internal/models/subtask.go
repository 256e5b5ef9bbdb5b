package models

import (
	"time"

	"github.com/google/uuid"
)

// Subtask represents one step of a task. Subtasks are created either by
// direct user entry or by saving an AI-generated suggestion; their lifecycle
// is independent of the parent task's status.
type Subtask struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}
