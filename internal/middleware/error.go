package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorHandler recovers panics from downstream handlers. Panic details are
// logged server-side only; the client gets an opaque 500.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic_recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					if encErr := json.NewEncoder(w).Encode(map[string]any{"error": "Internal server error"}); encErr != nil {
						logger.Error("failed_to_encode_error_response",
							zap.Error(encErr),
							zap.String("path", r.URL.Path),
						)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
