package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/models"
	"github.com/taskpilot/api/internal/request"
	"github.com/taskpilot/api/internal/services/oidc"
	"go.uber.org/zap"
)

// Auth validates the Bearer token on every request and resolves it to a
// local user, provisioning one on first sight of the provider subject.
// Requests without a valid token never reach the handlers.
func Auth(db *database.DB, provider *oidc.Provider, jwksManager *oidc.JWKSManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}
			tokenString := parts[1]

			ctx := r.Context()
			settings := provider.Settings()
			if !settings.Configured() {
				respondError(w, http.StatusInternalServerError, "Identity provider not configured")
				return
			}

			verifier := oidc.NewVerifier(jwksManager, settings.Issuer, settings.ClientID)
			claims, err := verifier.Verify(ctx, tokenString, settings.JWKSURL)
			if err != nil {
				logger.Debug("token_verification_failed",
					zap.String("issuer", settings.Issuer),
					zap.Error(err),
				)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userRepo := database.NewUserRepository(db)
			user, err := userRepo.GetByProviderID(ctx, claims.Sub)
			if err != nil {
				// The repository wraps sql.ErrNoRows, so errors.Is unwraps it
				if errors.Is(err, sql.ErrNoRows) {
					user = &models.User{
						ID:         uuid.New(),
						Email:      claims.Email,
						ProviderID: &claims.Sub,
					}
					if claims.Name != "" {
						name := claims.Name
						user.Name = &name
					}
					if err := userRepo.Create(ctx, user); err != nil {
						logger.Error("user_provisioning_failed", zap.Error(err))
						respondError(w, http.StatusInternalServerError, "Failed to create user")
						return
					}
				} else {
					logger.Error("user_lookup_failed", zap.Error(err))
					respondError(w, http.StatusInternalServerError, "Database error")
					return
				}
			} else {
				// Keep profile fields in step with the token
				updateNeeded := false
				if user.Email != claims.Email && claims.Email != "" {
					user.Email = claims.Email
					updateNeeded = true
				}
				if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
					name := claims.Name
					user.Name = &name
					updateNeeded = true
				}
				if updateNeeded {
					if err := userRepo.Update(ctx, user); err != nil {
						logger.Warn("user_profile_update_failed", zap.Error(err))
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
