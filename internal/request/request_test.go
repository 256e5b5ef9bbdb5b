package request

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/taskpilot/api/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for wins", "203.0.113.5, 10.0.0.1", "198.51.100.2", "192.0.2.1:1234", "203.0.113.5"},
		{"x-real-ip next", "", "198.51.100.2", "192.0.2.1:1234", "198.51.100.2"},
		{"remote addr last", "", "", "192.0.2.1:1234", "192.0.2.1:1234"},
		{"single forwarded entry", "203.0.113.5", "", "192.0.2.1:1234", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "alex@example.com"}
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithUser(req.Context(), user))

	got := UserFromContext(req)
	if got == nil || got.ID != user.ID {
		t.Errorf("UserFromContext = %v, want %v", got, user)
	}
}

func TestUserFromContextMissing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/", nil)
	if got := UserFromContext(req); got != nil {
		t.Errorf("UserFromContext = %v, want nil", got)
	}
}
