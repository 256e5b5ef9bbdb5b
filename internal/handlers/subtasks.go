package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/validation"
)

// SubtaskHandler handles subtask CRUD requests
type SubtaskHandler struct {
	taskRepo    database.TaskRepositoryInterface
	subtaskRepo database.SubtaskRepositoryInterface
}

// NewSubtaskHandler creates a new subtask handler
func NewSubtaskHandler(taskRepo database.TaskRepositoryInterface, subtaskRepo database.SubtaskRepositoryInterface) *SubtaskHandler {
	return &SubtaskHandler{
		taskRepo:    taskRepo,
		subtaskRepo: subtaskRepo,
	}
}

// RegisterTaskRoutes registers the per-task subtask routes.
// The router should already carry the /tasks prefix.
func (h *SubtaskHandler) RegisterTaskRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/subtasks", h.ListSubtasks).Methods("GET")
	r.HandleFunc("/{id}/subtasks", h.CreateSubtask).Methods("POST")
}

// RegisterSubtaskRoutes registers the direct subtask routes.
// The router should already carry the /subtasks prefix.
func (h *SubtaskHandler) RegisterSubtaskRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/complete", h.CompleteSubtask).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteSubtask).Methods("DELETE")
}

// CreateSubtaskRequest represents a create subtask request. Saving an
// AI-generated suggestion goes through the same endpoint: the suggestion
// text becomes the title.
type CreateSubtaskRequest struct {
	Title string `json:"title" validate:"required,min=1,max=2000"`
}

// CompleteSubtaskRequest toggles a subtask's completion state
type CompleteSubtaskRequest struct {
	Completed bool `json:"completed"`
}

// ownedTask loads the task from the {id} route var and checks ownership.
// Writes the error response itself; callers stop on nil.
func (h *SubtaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) *models.Task {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return nil
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return nil
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return nil
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Task does not belong to user")
		return nil
	}

	return task
}

// ListSubtasks lists a task's subtasks in creation order
func (h *SubtaskHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	subtasks, err := h.subtaskRepo.GetByTaskID(r.Context(), task.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve subtasks")
		return
	}
	if subtasks == nil {
		subtasks = []*models.Subtask{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"subtasks": subtasks})
}

// CreateSubtask adds a subtask to a task. Saving the same suggestion twice
// creates two rows; deduplication is the client's call, not the server's.
func (h *SubtaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	var req CreateSubtaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required and cannot be empty")
		return
	}

	subtask := &models.Subtask{
		ID:     uuid.New(),
		TaskID: task.ID,
		Title:  req.Title,
	}

	if err := h.subtaskRepo.Create(r.Context(), subtask); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create subtask")
		return
	}

	respondJSON(w, http.StatusCreated, subtask)
}

// ownedSubtask loads the subtask from the {id} route var and checks that its
// parent task belongs to the authenticated user
func (h *SubtaskHandler) ownedSubtask(w http.ResponseWriter, r *http.Request) *models.Subtask {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return nil
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid subtask ID")
		return nil
	}

	ctx := r.Context()
	subtask, err := h.subtaskRepo.GetByID(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Subtask not found")
		return nil
	}

	task, err := h.taskRepo.GetByID(ctx, subtask.TaskID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return nil
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Subtask does not belong to user")
		return nil
	}

	return subtask
}

// CompleteSubtask sets a subtask's completion state
func (h *SubtaskHandler) CompleteSubtask(w http.ResponseWriter, r *http.Request) {
	subtask := h.ownedSubtask(w, r)
	if subtask == nil {
		return
	}

	req := CompleteSubtaskRequest{Completed: true}
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	if err := h.subtaskRepo.SetCompleted(r.Context(), subtask.ID, req.Completed); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update subtask")
		return
	}

	subtask.Completed = req.Completed
	respondJSON(w, http.StatusOK, subtask)
}

// DeleteSubtask deletes a subtask
func (h *SubtaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	subtask := h.ownedSubtask(w, r)
	if subtask == nil {
		return
	}

	if err := h.subtaskRepo.Delete(r.Context(), subtask.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete subtask")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
