package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL    string
	ServerPort     string
	FrontendURL    string
	OpenAIKey      string
	AIModel        string
	AIBaseURL      string
	EmbeddingModel string

	// SearchTopK bounds how many ranked tasks a smart search returns.
	SearchTopK int
	// SearchScoreFloor is the minimum cosine similarity a candidate must
	// reach to appear in search results. 0 keeps weak-but-positive matches;
	// set to -1 to disable the floor entirely.
	SearchScoreFloor float64
	// UpstreamTimeout bounds every outbound call to the AI provider.
	UpstreamTimeout time.Duration

	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int

	OIDCIssuer       string
	OIDCJWKSURL      string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURI  string

	EnableHSTS      bool
	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", ""),
		SearchTopK:       getEnvInt("SEARCH_TOP_K", 10),
		SearchScoreFloor: getEnvFloat("SEARCH_SCORE_FLOOR", 0.0),
		UpstreamTimeout:  time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 20)) * time.Second,
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RateLimit:        getEnv("RATE_LIMIT", "5-S"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL:      getEnv("OIDC_JWKS_URL", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURI:  getEnv("OIDC_REDIRECT_URI", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for the embedding refresh queue")
	}

	if cfg.SearchTopK <= 0 {
		return nil, fmt.Errorf("SEARCH_TOP_K must be positive, got %d", cfg.SearchTopK)
	}

	if cfg.SearchScoreFloor < -1 || cfg.SearchScoreFloor > 1 {
		return nil, fmt.Errorf("SEARCH_SCORE_FLOOR must be within [-1, 1], got %g", cfg.SearchScoreFloor)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
