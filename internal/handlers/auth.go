package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/services/oidc"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oidcProvider *oidc.Provider) *AuthHandler {
	return &AuthHandler{oidcProvider: oidcProvider}
}

// RegisterRoutes registers auth routes on the given router.
// The router should already carry the /auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns the OIDC configuration the frontend needs to start
// a login
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get OIDC configuration")
		return
	}
	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns the current user
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
