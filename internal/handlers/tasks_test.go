package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/queue"
	"go.uber.org/zap"
)

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("creates task and schedules embedding", func(t *testing.T) {
		t.Parallel()

		user := testUser()
		repo := newMockTaskRepo()
		jobQueue := &mockJobQueue{}
		handler := NewTaskHandler(repo, jobQueue, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Plan sprint review"}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
		}

		var task models.Task
		decodeBody(t, rec, &task)
		if task.Title != "Plan sprint review" {
			t.Errorf("Title = %q", task.Title)
		}
		if task.Priority != models.TaskPriorityMedium {
			t.Errorf("Priority = %s, want default medium", task.Priority)
		}
		if task.Status != models.TaskStatusPending {
			t.Errorf("Status = %s, want pending", task.Status)
		}
		if task.UserID != user.ID {
			t.Errorf("UserID = %v, want %v", task.UserID, user.ID)
		}

		if len(jobQueue.enqueued) != 1 {
			t.Fatalf("enqueued %d jobs, want 1", len(jobQueue.enqueued))
		}
		job := jobQueue.enqueued[0]
		if job.Type != queue.JobTypeEmbeddingRefresh {
			t.Errorf("job type = %s", job.Type)
		}
		if job.TaskID == nil || *job.TaskID != task.ID {
			t.Errorf("job TaskID = %v, want %v", job.TaskID, task.ID)
		}
	})

	t.Run("enqueue failure does not fail the request", func(t *testing.T) {
		t.Parallel()

		jobQueue := &mockJobQueue{enqueueErr: errors.New("broker down")}
		handler := NewTaskHandler(newMockTaskRepo(), jobQueue, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Write release notes"}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201 despite enqueue failure", rec.Code)
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": ""}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects whitespace-only title", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "   "}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "A task", "priority": "urgent"}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "A task"}, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	user := testUser()
	mine := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Mine", Priority: models.TaskPriorityHigh, Status: models.TaskStatusPending}
	theirs := &models.Task{ID: uuid.New(), UserID: uuid.New(), Title: "Theirs", Priority: models.TaskPriorityHigh, Status: models.TaskStatusPending}

	t.Run("returns only the caller's tasks", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(mine, theirs), nil, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodGet, "/api/v1/tasks", nil, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp struct {
			Tasks []*models.Task `json:"tasks"`
		}
		decodeBody(t, rec, &resp)
		if len(resp.Tasks) != 1 {
			t.Fatalf("got %d tasks, want 1", len(resp.Tasks))
		}
		if resp.Tasks[0].ID != mine.ID {
			t.Errorf("returned task %v, want %v", resp.Tasks[0].ID, mine.ID)
		}
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), nil, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodGet, "/api/v1/tasks", nil, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var resp struct {
			Tasks []*models.Task `json:"tasks"`
		}
		decodeBody(t, rec, &resp)
		if resp.Tasks == nil {
			t.Error("tasks should serialize as [], not null")
		}
	})

	t.Run("rejects invalid filter values", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(newMockTaskRepo(), nil, zap.NewNop())
		router := taskRouter(handler, nil)

		for _, target := range []string{"/api/v1/tasks?priority=critical", "/api/v1/tasks?status=archived"} {
			req := newRequest(t, http.MethodGet, target, nil, user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d, want 400", target, rec.Code)
			}
		}
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Mine"}
	handler := NewTaskHandler(newMockTaskRepo(task), nil, zap.NewNop())
	router := taskRouter(handler, nil)

	tests := []struct {
		name       string
		target     string
		user       *models.User
		wantStatus int
	}{
		{"owner sees the task", "/api/v1/tasks/" + task.ID.String(), user, http.StatusOK},
		{"other user gets 403", "/api/v1/tasks/" + task.ID.String(), testUser(), http.StatusForbidden},
		{"unknown id gets 404", "/api/v1/tasks/" + uuid.NewString(), user, http.StatusNotFound},
		{"malformed id gets 400", "/api/v1/tasks/not-a-uuid", user, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := newRequest(t, http.MethodGet, tt.target, nil, tt.user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	t.Run("title change schedules embedding refresh", func(t *testing.T) {
		t.Parallel()

		user := testUser()
		task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Old title", Priority: models.TaskPriorityMedium, Status: models.TaskStatusPending}
		jobQueue := &mockJobQueue{}
		handler := NewTaskHandler(newMockTaskRepo(task), jobQueue, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"title": "New title"}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		if len(jobQueue.enqueued) != 1 {
			t.Errorf("enqueued %d jobs, want 1 after title change", len(jobQueue.enqueued))
		}
	})

	t.Run("status change alone does not reembed", func(t *testing.T) {
		t.Parallel()

		user := testUser()
		task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Stable title", Priority: models.TaskPriorityMedium, Status: models.TaskStatusPending}
		jobQueue := &mockJobQueue{}
		handler := NewTaskHandler(newMockTaskRepo(task), jobQueue, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"status": "done"}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(jobQueue.enqueued) != 0 {
			t.Errorf("enqueued %d jobs, want 0 for a status-only change", len(jobQueue.enqueued))
		}

		var updated models.Task
		decodeBody(t, rec, &updated)
		if updated.Status != models.TaskStatusDone {
			t.Errorf("Status = %s, want done", updated.Status)
		}
	})

	t.Run("unchanged title does not reembed", func(t *testing.T) {
		t.Parallel()

		user := testUser()
		task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Same title", Priority: models.TaskPriorityMedium, Status: models.TaskStatusPending}
		jobQueue := &mockJobQueue{}
		handler := NewTaskHandler(newMockTaskRepo(task), jobQueue, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"title": "Same title"}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(jobQueue.enqueued) != 0 {
			t.Errorf("enqueued %d jobs, want 0 when the title is unchanged", len(jobQueue.enqueued))
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		user := testUser()
		task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Keep me"}
		handler := NewTaskHandler(newMockTaskRepo(task), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"title": "  "}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("other user cannot update", func(t *testing.T) {
		t.Parallel()

		task := &models.Task{ID: uuid.New(), UserID: uuid.New(), Title: "Not yours"}
		handler := NewTaskHandler(newMockTaskRepo(task), &mockJobQueue{}, zap.NewNop())
		router := taskRouter(handler, nil)

		req := newRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"title": "Hijacked"}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Doomed"}
	repo := newMockTaskRepo(task)
	handler := NewTaskHandler(repo, nil, zap.NewNop())
	router := taskRouter(handler, nil)

	req := newRequest(t, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := repo.tasks[task.ID]; ok {
		t.Error("task still present after delete")
	}
}
