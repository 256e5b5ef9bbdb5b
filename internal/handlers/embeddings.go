package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/services/ai"
)

// EmbeddingsHandler handles on-demand embedding refresh requests
type EmbeddingsHandler struct {
	taskRepo  database.TaskRepositoryInterface
	refresher *ai.Refresher
}

// NewEmbeddingsHandler creates an embedding refresh handler
func NewEmbeddingsHandler(taskRepo database.TaskRepositoryInterface, refresher *ai.Refresher) *EmbeddingsHandler {
	return &EmbeddingsHandler{
		taskRepo:  taskRepo,
		refresher: refresher,
	}
}

// GenerateEmbeddingRequest represents an embedding refresh request. The key
// matches what the original frontend sends; the title is always read from
// storage, never trusted from the request.
type GenerateEmbeddingRequest struct {
	TaskID string `json:"taskId"`
}

// GenerateEmbeddingResponse reports how the refresh went. A degraded
// response is still a 200: the task exists either way, only its search
// visibility suffers.
type GenerateEmbeddingResponse struct {
	TaskID   uuid.UUID `json:"taskId"`
	Degraded bool      `json:"degraded"`
	Warning  string    `json:"warning,omitempty"`
}

// GenerateEmbedding refreshes the embedding for one task synchronously
func (h *EmbeddingsHandler) GenerateEmbedding(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req GenerateEmbeddingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if task.UserID != user.ID {
		respondError(w, http.StatusForbidden, "Task does not belong to user")
		return
	}

	outcome := h.refresher.RefreshTaskEmbedding(ctx, task)

	respondJSON(w, http.StatusOK, GenerateEmbeddingResponse{
		TaskID:   task.ID,
		Degraded: outcome.Degraded,
		Warning:  outcome.Warning,
	})
}
