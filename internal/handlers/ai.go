package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/services/ai"
	"github.com/taskpilot/api/internal/validation"
	"go.uber.org/zap"
)

// SubtaskGenerator produces raw model output for a task title
type SubtaskGenerator interface {
	GenerateSubtasks(ctx context.Context, taskTitle string) (string, error)
}

// SubtasksHandler handles AI subtask generation requests
type SubtasksHandler struct {
	generator SubtaskGenerator
	logger    *zap.Logger
}

// NewSubtasksHandler creates a subtask generation handler
func NewSubtasksHandler(generator SubtaskGenerator, logger *zap.Logger) *SubtasksHandler {
	return &SubtasksHandler{
		generator: generator,
		logger:    logger,
	}
}

// GenerateSubtasksRequest represents a subtask generation request. The AI
// endpoints keep the camelCase keys the original frontend sends.
type GenerateSubtasksRequest struct {
	TaskTitle string `json:"taskTitle"`
}

// GenerateSubtasks asks the model to decompose the given title and returns
// the normalized list. Nothing is persisted; the client decides which
// suggestions to save.
func (h *SubtasksHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req GenerateSubtasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.TaskTitle = validation.SanitizeText(req.TaskTitle)
	if req.TaskTitle == "" {
		respondError(w, http.StatusBadRequest, "Task title is required")
		return
	}

	raw, err := h.generator.GenerateSubtasks(r.Context(), req.TaskTitle)
	if err != nil {
		h.respondUpstreamError(w, err)
		return
	}

	subtasks, err := ai.Normalize(raw)
	if err != nil {
		// The raw payload is logged for diagnostics and never echoed to
		// the client
		var malformed *ai.MalformedResponseError
		if errors.As(err, &malformed) {
			h.logger.Error("subtask_response_malformed",
				zap.String("user_id", user.ID.String()),
				zap.String("raw_response", ai.SanitizeResponse(malformed.Raw, true)),
			)
		}
		respondError(w, http.StatusInternalServerError, "Failed to generate subtasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"subtasks": subtasks})
}

// respondUpstreamError maps provider failures to client responses. Detail
// stays in the logs; the client learns only the failure class.
func (h *SubtasksHandler) respondUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrUpstreamUnavailable):
		respondError(w, http.StatusServiceUnavailable, "AI service is not configured")
	case errors.Is(err, ai.ErrUpstreamTimeout):
		respondError(w, http.StatusGatewayTimeout, "AI service timed out")
	default:
		h.logger.Warn("subtask_generation_failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to generate subtasks")
	}
}
