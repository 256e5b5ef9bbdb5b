package ai

import (
	"context"

	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/logger"
	"github.com/taskpilot/api/internal/models"
	"go.uber.org/zap"
)

// EmbeddingClient is the subset of the provider client the refresher needs
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbeddingModel() string
}

// RefreshOutcome reports how an embedding refresh went. Embedding is an
// enrichment, not a requirement: a failed refresh degrades search for one
// task but must never fail the operation that triggered it, so failure is
// reported as a warning instead of an error. The explicit outcome type
// exists so callers and tests can assert the degradation happened.
type RefreshOutcome struct {
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}

// Refresher generates and stores task embeddings
type Refresher struct {
	client EmbeddingClient
	repo   database.EmbeddingRepositoryInterface
	logger *zap.Logger
}

// NewRefresher creates an embedding refresher
func NewRefresher(client EmbeddingClient, repo database.EmbeddingRepositoryInterface, log *zap.Logger) *Refresher {
	return &Refresher{
		client: client,
		repo:   repo,
		logger: log,
	}
}

// RefreshTaskEmbedding embeds the task title and upserts the task's
// embedding record. A concurrent refresh for the same task races on the
// upsert; last write wins.
func (r *Refresher) RefreshTaskEmbedding(ctx context.Context, task *models.Task) *RefreshOutcome {
	vector, err := r.client.Embed(ctx, task.Title)
	if err != nil {
		r.logger.Warn("embedding_refresh_failed",
			zap.String("task_id", task.ID.String()),
			zap.String("user_id", task.UserID.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		return &RefreshOutcome{
			Degraded: true,
			Warning:  "embedding generation failed; task saved without semantic index",
		}
	}

	record := &models.EmbeddingRecord{
		TaskID: task.ID,
		Vector: vector,
		Model:  r.client.EmbeddingModel(),
	}

	if err := r.repo.Upsert(ctx, record); err != nil {
		r.logger.Warn("embedding_store_failed",
			zap.String("task_id", task.ID.String()),
			zap.String("user_id", task.UserID.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		return &RefreshOutcome{
			Degraded: true,
			Warning:  "embedding could not be stored; task saved without semantic index",
		}
	}

	r.logger.Debug("embedding_refreshed",
		zap.String("task_id", task.ID.String()),
		zap.String("model", record.Model),
		zap.Int("dimension", len(vector)),
	)

	return &RefreshOutcome{}
}
