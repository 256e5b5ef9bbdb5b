package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"go.uber.org/zap"
)

type mockEmbeddingClient struct {
	vector []float64
	err    error
	model  string
}

func (m *mockEmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return m.vector, m.err
}

func (m *mockEmbeddingClient) EmbeddingModel() string {
	if m.model == "" {
		return "test-embedding-model"
	}
	return m.model
}

type mockEmbeddingRepo struct {
	upsertErr error
	upserted  *models.EmbeddingRecord
}

func (m *mockEmbeddingRepo) Upsert(ctx context.Context, record *models.EmbeddingRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = record
	return nil
}

func (m *mockEmbeddingRepo) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.EmbeddingRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEmbeddingRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*database.TaskEmbedding, error) {
	return nil, errors.New("not implemented")
}

func testTask() *models.Task {
	return &models.Task{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "Plan birthday party",
	}
}

func TestRefreshTaskEmbeddingSuccess(t *testing.T) {
	t.Parallel()

	client := &mockEmbeddingClient{vector: []float64{0.1, 0.2, 0.3}}
	repo := &mockEmbeddingRepo{}
	refresher := NewRefresher(client, repo, zap.NewNop())

	task := testTask()
	outcome := refresher.RefreshTaskEmbedding(context.Background(), task)

	if outcome.Degraded {
		t.Fatalf("unexpected degraded outcome: %+v", outcome)
	}
	if repo.upserted == nil {
		t.Fatal("expected an upserted record")
	}
	if repo.upserted.TaskID != task.ID {
		t.Errorf("TaskID = %v, want %v", repo.upserted.TaskID, task.ID)
	}
	if repo.upserted.Model != "test-embedding-model" {
		t.Errorf("Model = %q, want model tag recorded alongside vector", repo.upserted.Model)
	}
	if len(repo.upserted.Vector) != 3 {
		t.Errorf("Vector length = %d, want 3", len(repo.upserted.Vector))
	}
}

func TestRefreshTaskEmbeddingEmbedFailure(t *testing.T) {
	t.Parallel()

	client := &mockEmbeddingClient{err: errors.New("provider down")}
	repo := &mockEmbeddingRepo{}
	refresher := NewRefresher(client, repo, zap.NewNop())

	outcome := refresher.RefreshTaskEmbedding(context.Background(), testTask())

	if !outcome.Degraded {
		t.Fatal("expected degraded outcome when embedding fails")
	}
	if outcome.Warning == "" {
		t.Error("expected a warning message")
	}
	if repo.upserted != nil {
		t.Error("nothing should be stored when embedding fails")
	}
}

func TestRefreshTaskEmbeddingStoreFailure(t *testing.T) {
	t.Parallel()

	client := &mockEmbeddingClient{vector: []float64{0.5}}
	repo := &mockEmbeddingRepo{upsertErr: errors.New("db down")}
	refresher := NewRefresher(client, repo, zap.NewNop())

	outcome := refresher.RefreshTaskEmbedding(context.Background(), testTask())

	if !outcome.Degraded {
		t.Fatal("expected degraded outcome when storage fails")
	}
	if outcome.Warning == "" {
		t.Error("expected a warning message")
	}
}
