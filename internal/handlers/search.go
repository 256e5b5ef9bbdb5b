package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/search"
	"github.com/taskpilot/api/internal/services/ai"
	"github.com/taskpilot/api/internal/validation"
	"go.uber.org/zap"
)

// QueryEmbedder converts a search query to a vector
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SearchHandler handles semantic search requests
type SearchHandler struct {
	embedder      QueryEmbedder
	embeddingRepo database.EmbeddingRepositoryInterface
	engine        *search.Engine
	logger        *zap.Logger
}

// NewSearchHandler creates a semantic search handler
func NewSearchHandler(embedder QueryEmbedder, embeddingRepo database.EmbeddingRepositoryInterface, engine *search.Engine, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		embedder:      embedder,
		embeddingRepo: embeddingRepo,
		engine:        engine,
		logger:        logger,
	}
}

// SmartSearchRequest represents a semantic search request
type SmartSearchRequest struct {
	Query string `json:"query"`
}

// SearchResult pairs a matched task with its similarity score
type SearchResult struct {
	Task  *models.Task `json:"task"`
	Score float64      `json:"score"`
}

// SmartSearch embeds the query and ranks the user's tasks by similarity.
// Unlike the background refresh path, embedding failures here surface as
// errors: without a query vector there is nothing to rank.
func (h *SearchHandler) SmartSearch(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req SmartSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Query = validation.SanitizeText(req.Query)
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "Query is required")
		return
	}

	ctx := r.Context()
	queryVector, err := h.embedder.Embed(ctx, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrUpstreamUnavailable):
			respondError(w, http.StatusServiceUnavailable, "AI service is not configured")
		case errors.Is(err, ai.ErrUpstreamTimeout):
			respondError(w, http.StatusGatewayTimeout, "AI service timed out")
		default:
			h.logger.Warn("query_embedding_failed", zap.Error(err))
			respondError(w, http.StatusBadGateway, "Failed to embed query")
		}
		return
	}

	// Candidates are already scoped to the owner at the query level
	embeddings, err := h.embeddingRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve embeddings")
		return
	}

	candidates := make([]search.Candidate, 0, len(embeddings))
	tasksByID := make(map[string]*models.Task, len(embeddings))
	for _, e := range embeddings {
		candidates = append(candidates, search.Candidate{
			TaskID:    e.Task.ID,
			Vector:    e.Vector,
			CreatedAt: e.Task.CreatedAt,
		})
		tasksByID[e.Task.ID.String()] = e.Task
	}

	ranked := h.engine.Rank(queryVector, candidates)

	results := make([]SearchResult, 0, len(ranked))
	for _, match := range ranked {
		task, ok := tasksByID[match.TaskID.String()]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Task:  task,
			Score: match.Score,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}
