package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeEmbeddingRefresh regenerates the embedding for a single task
	JobTypeEmbeddingRefresh JobType = "embedding_refresh"
	// JobTypeUserReindex regenerates embeddings for every task a user owns,
	// used after an embedding model change
	JobTypeUserReindex JobType = "user_reindex"
)

// DefaultMaxRetries bounds redelivery of a failed job. Embedding refresh is
// best-effort; a job that fails twice goes to the DLQ instead of churning.
const DefaultMaxRetries = 1

// Job is one unit of background work
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	TaskID     *uuid.UUID     `json:"task_id,omitempty"`    // set for embedding_refresh jobs
	NotBefore  *time.Time     `json:"not_before,omitempty"` // earliest time to process (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // latest time to process (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, taskID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		TaskID:     taskID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

// NewEmbeddingRefreshJob creates a job to refresh one task's embedding
func NewEmbeddingRefreshJob(userID, taskID uuid.UUID) *Job {
	return NewJob(JobTypeEmbeddingRefresh, userID, &taskID)
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
