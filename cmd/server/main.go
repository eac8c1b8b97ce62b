package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/zeus0z/cloudhumans-takehome/common/id"
	"github.com/zeus0z/cloudhumans-takehome/common/llm"
	"github.com/zeus0z/cloudhumans-takehome/common/logger"
	"github.com/zeus0z/cloudhumans-takehome/common/otel"
	"github.com/zeus0z/cloudhumans-takehome/core/config"
	"github.com/zeus0z/cloudhumans-takehome/internal/completion"
	"github.com/zeus0z/cloudhumans-takehome/internal/embedding"
	"github.com/zeus0z/cloudhumans-takehome/internal/http/middleware"
	httprouter "github.com/zeus0z/cloudhumans-takehome/internal/http/router"
	"github.com/zeus0z/cloudhumans-takehome/internal/queue"
	"github.com/zeus0z/cloudhumans-takehome/internal/retriever"
	"github.com/zeus0z/cloudhumans-takehome/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "claudia starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected")

	llmClient, err := llm.New(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		ChatModel:      cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	embedder := embedding.NewProvider(
		llmClient,
		embedding.NewRedisCache(redisClient, cfg.Redis.EmbeddingTTL),
		cfg.OpenAI.EmbedTimeout,
	)

	sectionRetriever := retriever.New(retriever.Config{
		URL:            cfg.Typesense.URL,
		APIKey:         cfg.Typesense.APIKey,
		Collection:     cfg.Typesense.Collection,
		OverfetchLimit: cfg.Typesense.OverfetchLimit,
		SearchTimeout:  cfg.Typesense.SearchTimeout,
	})

	completer := completion.New(llmClient, cfg.OpenAI.ChatTimeout)

	var escalations queue.Producer
	if cfg.Redis.EscalationEnabled() {
		escalations = queue.NewRedisProducer(redisClient, cfg.Redis.EscalationStream, slog.Default())
		slog.InfoContext(ctx, "escalation events enabled", "stream", cfg.Redis.EscalationStream)
	}

	conversations := service.NewConversationService(embedder, sectionRetriever, completer, escalations, cfg.Retrieval.TopK)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, conversations)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, conversations service.ConversationService) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → request id
	// and logger run with trace context available
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, conversations)

	return router
}
