package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/models"
)

func TestCreateSubtask(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Plan party"}

	t.Run("creates subtask under the task", func(t *testing.T) {
		t.Parallel()

		subtaskRepo := newMockSubtaskRepo()
		handler := NewSubtaskHandler(newMockTaskRepo(task), subtaskRepo)
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "Send invitations"}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
		}

		var subtask models.Subtask
		decodeBody(t, rec, &subtask)
		if subtask.TaskID != task.ID {
			t.Errorf("TaskID = %v, want %v", subtask.TaskID, task.ID)
		}
		if subtask.Completed {
			t.Error("new subtask should start incomplete")
		}
	})

	t.Run("saving the same suggestion twice creates two rows", func(t *testing.T) {
		t.Parallel()

		subtaskRepo := newMockSubtaskRepo()
		handler := NewSubtaskHandler(newMockTaskRepo(task), subtaskRepo)
		router := taskRouter(nil, handler)

		ids := make(map[uuid.UUID]bool)
		for i := 0; i < 2; i++ {
			req := newRequest(t, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "Buy balloons"}, user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("attempt %d: status = %d, want 201", i, rec.Code)
			}
			var subtask models.Subtask
			decodeBody(t, rec, &subtask)
			ids[subtask.ID] = true
		}

		if len(ids) != 2 {
			t.Errorf("got %d distinct subtasks, want 2", len(ids))
		}
		if len(subtaskRepo.subtasks) != 2 {
			t.Errorf("stored %d subtasks, want 2", len(subtaskRepo.subtasks))
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		handler := NewSubtaskHandler(newMockTaskRepo(task), newMockSubtaskRepo())
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "  "}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("other user cannot add subtasks", func(t *testing.T) {
		t.Parallel()

		handler := NewSubtaskHandler(newMockTaskRepo(task), newMockSubtaskRepo())
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "Sneaky"}, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestListSubtasks(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Parent"}
	other := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Other parent"}

	mine := &models.Subtask{ID: uuid.New(), TaskID: task.ID, Title: "Step one"}
	elsewhere := &models.Subtask{ID: uuid.New(), TaskID: other.ID, Title: "Unrelated"}

	handler := NewSubtaskHandler(newMockTaskRepo(task, other), newMockSubtaskRepo(mine, elsewhere))
	router := taskRouter(nil, handler)

	req := newRequest(t, http.MethodGet, "/api/v1/tasks/"+task.ID.String()+"/subtasks", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Subtasks []*models.Subtask `json:"subtasks"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Subtasks) != 1 {
		t.Fatalf("got %d subtasks, want 1", len(resp.Subtasks))
	}
	if resp.Subtasks[0].ID != mine.ID {
		t.Errorf("returned %v, want %v", resp.Subtasks[0].ID, mine.ID)
	}
}

func TestCompleteSubtask(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Parent"}

	t.Run("empty body marks complete", func(t *testing.T) {
		t.Parallel()

		subtask := &models.Subtask{ID: uuid.New(), TaskID: task.ID, Title: "Step"}
		repo := newMockSubtaskRepo(subtask)
		handler := NewSubtaskHandler(newMockTaskRepo(task), repo)
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/subtasks/"+subtask.ID.String()+"/complete", nil, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		if !repo.subtasks[subtask.ID].Completed {
			t.Error("subtask should be completed")
		}
	})

	t.Run("explicit false reopens", func(t *testing.T) {
		t.Parallel()

		subtask := &models.Subtask{ID: uuid.New(), TaskID: task.ID, Title: "Step", Completed: true}
		repo := newMockSubtaskRepo(subtask)
		handler := NewSubtaskHandler(newMockTaskRepo(task), repo)
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/subtasks/"+subtask.ID.String()+"/complete", map[string]bool{"completed": false}, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if repo.subtasks[subtask.ID].Completed {
			t.Error("subtask should be reopened")
		}
	})

	t.Run("ownership enforced through the parent task", func(t *testing.T) {
		t.Parallel()

		subtask := &models.Subtask{ID: uuid.New(), TaskID: task.ID, Title: "Step"}
		handler := NewSubtaskHandler(newMockTaskRepo(task), newMockSubtaskRepo(subtask))
		router := taskRouter(nil, handler)

		req := newRequest(t, http.MethodPost, "/api/v1/subtasks/"+subtask.ID.String()+"/complete", nil, testUser())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestDeleteSubtask(t *testing.T) {
	t.Parallel()

	user := testUser()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Parent"}
	subtask := &models.Subtask{ID: uuid.New(), TaskID: task.ID, Title: "Step"}

	repo := newMockSubtaskRepo(subtask)
	handler := NewSubtaskHandler(newMockTaskRepo(task), repo)
	router := taskRouter(nil, handler)

	req := newRequest(t, http.MethodDelete, "/api/v1/subtasks/"+subtask.ID.String(), nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := repo.subtasks[subtask.ID]; ok {
		t.Error("subtask still present after delete")
	}
}
