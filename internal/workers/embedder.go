package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/queue"
	"github.com/taskpilot/api/internal/services/ai"
	"go.uber.org/zap"
)

// Embedder processes embedding jobs from the queue. It regenerates the
// vector for one task per job and upserts it, so redelivery of the same job
// is harmless.
type Embedder struct {
	client        ai.EmbeddingClient
	taskRepo      database.TaskRepositoryInterface
	embeddingRepo database.EmbeddingRepositoryInterface
	jobQueue      queue.JobQueue // for re-enqueueing delayed retries
	logger        *zap.Logger
}

// NewEmbedder creates an embedding worker
func NewEmbedder(
	client ai.EmbeddingClient,
	taskRepo database.TaskRepositoryInterface,
	embeddingRepo database.EmbeddingRepositoryInterface,
	jobQueue queue.JobQueue,
	log *zap.Logger,
) *Embedder {
	return &Embedder{
		client:        client,
		taskRepo:      taskRepo,
		embeddingRepo: embeddingRepo,
		jobQueue:      jobQueue,
		logger:        log,
	}
}

// ProcessEmbeddingRefreshJob regenerates the embedding for a single task
func (e *Embedder) ProcessEmbeddingRefreshJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == nil {
		return fmt.Errorf("task_id is required for embedding refresh job")
	}

	task, err := e.taskRepo.GetByID(ctx, *job.TaskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Task deleted after the job was enqueued; nothing to refresh
			e.logger.Debug("embedding_job_task_gone",
				zap.String("task_id", job.TaskID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to get task: %w", err)
	}

	if task.UserID != job.UserID {
		return fmt.Errorf("task does not belong to user")
	}

	return e.refreshTask(ctx, task)
}

// ProcessUserReindexJob regenerates embeddings for every task the user owns.
// Used after an embedding model change: old vectors carry a different model
// tag and dimension, so search skips them until they are rewritten.
func (e *Embedder) ProcessUserReindexJob(ctx context.Context, job *queue.Job) error {
	tasks, err := e.taskRepo.GetByUserID(ctx, job.UserID, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}

	var failed int
	for _, task := range tasks {
		if err := e.refreshTask(ctx, task); err != nil {
			failed++
			e.logger.Warn("reindex_task_failed",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("user_reindex_complete",
		zap.String("user_id", job.UserID.String()),
		zap.Int("tasks", len(tasks)),
		zap.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("reindex incomplete: %d of %d tasks failed", failed, len(tasks))
	}
	return nil
}

func (e *Embedder) refreshTask(ctx context.Context, task *models.Task) error {
	vector, err := e.client.Embed(ctx, task.Title)
	if err != nil {
		return fmt.Errorf("failed to embed task: %w", err)
	}

	record := &models.EmbeddingRecord{
		TaskID: task.ID,
		Vector: vector,
		Model:  e.client.EmbeddingModel(),
	}
	if err := e.embeddingRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	e.logger.Debug("embedding_refreshed",
		zap.String("task_id", task.ID.String()),
		zap.String("model", record.Model),
		zap.Int("dimension", len(vector)),
	)
	return nil
}

// ProcessJob dispatches a queue message to the right handler and settles it
func (e *Embedder) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	if !job.ShouldProcess() {
		// Not ready yet; requeue and wait
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("job_requeue_failed", zap.Error(nackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeEmbeddingRefresh:
		if err := e.ProcessEmbeddingRefreshJob(ctx, job); err != nil {
			return e.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeUserReindex:
		if err := e.ProcessUserReindexJob(ctx, job); err != nil {
			return e.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack reindex job: %w", ackErr)
		}
		return nil

	default:
		// Unknown job type, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError settles a failed job: re-enqueue with backoff while retries
// remain, otherwise dead-letter it. Embeddings are best-effort, so a job
// that exhausts its retries degrades search for one task and nothing else.
func (e *Embedder) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, jobErr error) error {
	if !job.CanRetry() {
		e.logger.Warn("embedding_job_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(jobErr),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return jobErr
	}

	retryDelay := ai.RetryDelay(jobErr, job.RetryCount)
	notBefore := time.Now().Add(retryDelay)

	retryJob := &queue.Job{
		ID:         job.ID,
		Type:       job.Type,
		UserID:     job.UserID,
		TaskID:     job.TaskID,
		NotBefore:  &notBefore,
		NotAfter:   job.NotAfter,
		Metadata:   job.Metadata,
		CreatedAt:  job.CreatedAt,
		RetryCount: job.RetryCount + 1,
		MaxRetries: job.MaxRetries,
	}

	if ackErr := msg.Ack(); ackErr != nil {
		e.logger.Warn("job_ack_failed_before_retry", zap.Error(ackErr))
	}

	if e.jobQueue == nil {
		return jobErr
	}

	if enqueueErr := e.jobQueue.Enqueue(ctx, retryJob); enqueueErr != nil {
		e.logger.Error("job_retry_enqueue_failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(enqueueErr),
		)
		return fmt.Errorf("failed to re-enqueue job: %w (original error: %v)", enqueueErr, jobErr)
	}

	e.logger.Info("embedding_job_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", retryJob.RetryCount),
		zap.Duration("delay", retryDelay),
	)
	return nil
}
