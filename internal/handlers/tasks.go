package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/queue"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/validation"
	"go.uber.org/zap"
)

const (
	// MaxTaskTitleLength is the maximum length for a task title
	MaxTaskTitleLength = 2000
)

// TaskHandler handles task CRUD requests
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
	jobQueue queue.JobQueue // nil disables background embedding refresh
	logger   *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskRepo: taskRepo,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// RegisterRoutes registers task routes on the given router.
// The router should already carry the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=2000"`
	Priority string `json:"priority,omitempty" validate:"omitempty,task_priority"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title    *string `json:"title,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// ListTasks lists the authenticated user's tasks with optional filters
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var priority *models.TaskPriority
	if p := r.URL.Query().Get("priority"); p != "" {
		if err := validation.ValidateTaskPriority(p); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		pEnum := models.TaskPriority(p)
		priority = &pEnum
	}

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		sEnum := models.TaskStatus(s)
		status = &sEnum
	}

	tasks, err := h.taskRepo.GetByUserID(r.Context(), user.ID, priority, status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// CreateTask creates a new task and schedules its embedding
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondError(w, http.StatusBadRequest, "Validation failed")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required and cannot be empty")
		return
	}

	priority := models.TaskPriorityMedium
	if req.Priority != "" {
		priority = models.TaskPriority(req.Priority)
	}

	ctx := r.Context()
	task := &models.Task{
		ID:       uuid.New(),
		UserID:   user.ID,
		Title:    req.Title,
		Priority: priority,
		Status:   models.TaskStatusPending,
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	h.scheduleEmbeddingRefresh(r, task)

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Task does not belong to user")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task. A title change schedules an embedding
// refresh so search keeps matching the task's current wording.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Task does not belong to user")
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	titleChanged := false
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondError(w, http.StatusBadRequest, "Title cannot be empty")
			return
		}
		if len(title) > MaxTaskTitleLength {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTaskTitleLength))
			return
		}
		if title != task.Title {
			task.Title = title
			titleChanged = true
		}
	}

	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(*req.Priority); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		task.Priority = models.TaskPriority(*req.Priority)
	}

	if req.Status != nil {
		if err := validation.ValidateTaskStatus(*req.Status); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		task.Status = models.TaskStatus(*req.Status)
	}

	if err := h.taskRepo.Update(ctx, task); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	if titleChanged {
		h.scheduleEmbeddingRefresh(r, task)
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task. Subtasks and the embedding record go with it
// via cascade.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Task does not belong to user")
		return
	}

	if err := h.taskRepo.Delete(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// scheduleEmbeddingRefresh enqueues a background embedding job for the task.
// Fire and forget: an enqueue failure degrades search freshness for this
// task but never fails the request that triggered it.
func (h *TaskHandler) scheduleEmbeddingRefresh(r *http.Request, task *models.Task) {
	if h.jobQueue == nil {
		return
	}
	job := queue.NewEmbeddingRefreshJob(task.UserID, task.ID)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Warn("embedding_job_enqueue_failed",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}
}
