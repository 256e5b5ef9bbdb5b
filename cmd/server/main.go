package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskpilot/api/internal/config"
	"github.com/taskpilot/api/internal/database"
	"github.com/taskpilot/api/internal/handlers"
	"github.com/taskpilot/api/internal/logger"
	"github.com/taskpilot/api/internal/middleware"
	"github.com/taskpilot/api/internal/queue"
	"github.com/taskpilot/api/internal/search"
	"github.com/taskpilot/api/internal/services/ai"
	"github.com/taskpilot/api/internal/services/oidc"
	"github.com/taskpilot/api/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "taskpilot-api"

var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for AI API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_model", cfg.AIModel),
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tp.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis for rate limiting
	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ for the embedding job queue. Retried with backoff to ride
	// out broker startup delays.
	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	subtaskRepo := database.NewSubtaskRepository(db)
	embeddingRepo := database.NewEmbeddingRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)

	// Services
	oidcProvider := oidc.NewProvider(oidc.Settings{
		Issuer:       cfg.OIDCIssuer,
		JWKSURL:      cfg.OIDCJWKSURL,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURI:  cfg.OIDCRedirectURI,
	})
	jwksManager := oidc.NewJWKSManager()

	aiClient := ai.NewClient(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, cfg.EmbeddingModel, cfg.UpstreamTimeout, zapLogger, debugMode)
	refresher := ai.NewRefresher(aiClient, embeddingRepo, zapLogger)
	searchEngine := search.NewEngine(cfg.SearchTopK, cfg.SearchScoreFloor)

	// Handlers
	authHandler := handlers.NewAuthHandler(oidcProvider)
	taskHandler := handlers.NewTaskHandler(taskRepo, jobQueue, zapLogger)
	subtaskHandler := handlers.NewSubtaskHandler(taskRepo, subtaskRepo)
	subtasksAI := handlers.NewSubtasksHandler(aiClient, zapLogger)
	embeddingsHandler := handlers.NewEmbeddingsHandler(taskRepo, refresher)
	searchHandler := handlers.NewSearchHandler(aiClient, embeddingRepo, searchEngine, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	// Router and middleware. gorilla/mux runs middleware in registration
	// order, so the first Use is the outermost wrapper.
	r := mux.NewRouter()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	authMW := middleware.Auth(db, oidcProvider, jwksManager, zapLogger)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	openAPIPath := filepath.Join("api", "openapi", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// AI endpoints
	aiRouter := r.PathPrefix("").Subrouter()
	aiRouter.Use(authMW)
	aiRouter.Use(rateLimitMW)
	aiRouter.HandleFunc("/generate-subtasks", subtasksAI.GenerateSubtasks).Methods("POST")
	aiRouter.HandleFunc("/generate-task-embedding", embeddingsHandler.GenerateEmbedding).Methods("POST")
	aiRouter.HandleFunc("/smart-search", searchHandler.SmartSearch).Methods("POST")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	loginRouter := authRouter.PathPrefix("/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	loginRouter.HandleFunc("/login", authHandler.GetOIDCLogin).Methods("GET")

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	protectedAuthRouter.HandleFunc("/me", authHandler.GetMe).Methods("GET")

	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	tasksRouter.Use(authMW)
	tasksRouter.Use(rateLimitMW)
	taskHandler.RegisterRoutes(tasksRouter)
	subtaskHandler.RegisterTaskRoutes(tasksRouter)

	subtasksRouter := apiRouter.PathPrefix("/subtasks").Subrouter()
	subtasksRouter.Use(authMW)
	subtasksRouter.Use(rateLimitMW)
	subtaskHandler.RegisterSubtaskRoutes(subtasksRouter)

	// Preflight requests are answered by the CORS middleware; this keeps
	// OPTIONS from falling through to a 405
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Background loops: CORS hot-reload and DLQ garbage collection
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue connects to RabbitMQ with exponential backoff
func connectQueue(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"version": version})
}
