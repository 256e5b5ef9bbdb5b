package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/queue"
	"github.com/taskpilot/api/internal/request"
)

type mockTaskRepo struct {
	tasks     map[uuid.UUID]*models.Task
	createErr error
	updateErr error
	listErr   error
}

func newMockTaskRepo(tasks ...*models.Task) *mockTaskRepo {
	m := &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
	for _, task := range tasks {
		m.tasks[task.ID] = task
	}
	return m
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", sql.ErrNoRows)
	}
	return task, nil
}

func (m *mockTaskRepo) GetByUserID(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, status *models.TaskStatus) ([]*models.Task, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Task
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if priority != nil && task.Priority != *priority {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.tasks, id)
	return nil
}

type mockSubtaskRepo struct {
	subtasks  map[uuid.UUID]*models.Subtask
	createErr error
}

func newMockSubtaskRepo(subtasks ...*models.Subtask) *mockSubtaskRepo {
	m := &mockSubtaskRepo{subtasks: make(map[uuid.UUID]*models.Subtask)}
	for _, s := range subtasks {
		m.subtasks[s.ID] = s
	}
	return m
}

func (m *mockSubtaskRepo) Create(ctx context.Context, subtask *models.Subtask) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.subtasks[subtask.ID] = subtask
	return nil
}

func (m *mockSubtaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subtask, error) {
	subtask, ok := m.subtasks[id]
	if !ok {
		return nil, fmt.Errorf("subtask not found: %w", sql.ErrNoRows)
	}
	return subtask, nil
}

func (m *mockSubtaskRepo) GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Subtask, error) {
	var out []*models.Subtask
	for _, s := range m.subtasks {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubtaskRepo) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	subtask, ok := m.subtasks[id]
	if !ok {
		return fmt.Errorf("subtask not found: %w", sql.ErrNoRows)
	}
	subtask.Completed = completed
	return nil
}

func (m *mockSubtaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.subtasks, id)
	return nil
}

type mockEmbeddingRepo struct {
	embeddings []*database.TaskEmbedding
	listErr    error
	upsertErr  error
	upserted   []*models.EmbeddingRecord
}

func (m *mockEmbeddingRepo) Upsert(ctx context.Context, record *models.EmbeddingRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, record)
	return nil
}

func (m *mockEmbeddingRepo) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.EmbeddingRecord, error) {
	return nil, fmt.Errorf("embedding not found: %w", sql.ErrNoRows)
}

func (m *mockEmbeddingRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*database.TaskEmbedding, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.embeddings, nil
}

type mockJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
	healthErr  error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return m.healthErr }

func testUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "alex@example.com",
	}
}

// newRequest builds a request with an optional JSON body and authenticated user
func newRequest(t *testing.T, method, target string, body any, user *models.User) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

// taskRouter mounts the task and subtask handlers the way the server does,
// so route vars resolve in tests
func taskRouter(taskHandler *TaskHandler, subtaskHandler *SubtaskHandler) *mux.Router {
	r := mux.NewRouter()
	tasks := r.PathPrefix("/api/v1/tasks").Subrouter()
	if taskHandler != nil {
		taskHandler.RegisterRoutes(tasks)
	}
	if subtaskHandler != nil {
		subtaskHandler.RegisterTaskRoutes(tasks)
		subtasks := r.PathPrefix("/api/v1/subtasks").Subrouter()
		subtaskHandler.RegisterSubtaskRoutes(subtasks)
	}
	return r
}
