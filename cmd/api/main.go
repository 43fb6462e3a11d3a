package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"groundedkb/internal/config"
	"groundedkb/internal/handlers"
	"groundedkb/internal/http"
	"groundedkb/internal/lexical"
	"groundedkb/internal/llm"
	"groundedkb/internal/rag"
	"groundedkb/internal/service"
	"groundedkb/internal/storage"
	"groundedkb/internal/vectorstore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	checks := map[string]handlers.CheckFunc{
		"database": db.PingContext,
	}

	// A nil interface disables the vector index; retrieval then scans SQLite.
	var vectors vectorstore.VectorStore
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()
		checks["qdrant"] = func(ctx context.Context) error {
			ok, err := store.CollectionExists(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("collection %q does not exist", cfg.QdrantCollection)
			}
			return nil
		}
		vectors = store
		slog.Info("Vector backend ready", "backend", cfg.VectorBackend, "collection", cfg.QdrantCollection)
	case config.VectorBackendPgVector:
		store, err := vectorstore.NewPgVectorStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to pgvector: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()
		checks["pgvector"] = store.Ping
		vectors = store
		slog.Info("Vector backend ready", "backend", cfg.VectorBackend)
	default:
		slog.Info("No vector backend configured, using in-process scan")
	}

	var tokens rag.TokenSource = llm.StaticToken(cfg.LLMAPIKey)
	if cfg.OAuthTokenURL != "" {
		tokens = llm.NewOAuthTokenSource(cfg.OAuthTokenURL, cfg.LLMAPIKey, cfg.OAuthScope)
	}

	embedder, err := llm.NewCachedEmbedder(llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, 0), cfg.EmbeddingCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}

	tenants, err := config.LoadTenantSettings(cfg.TenantSettingsPath)
	if err != nil {
		return fmt.Errorf("failed to load tenant settings: %w", err)
	}

	engine := rag.NewEngine(rag.Deps{
		Embedder: embedder,
		Chat:     llm.NewClient(cfg.LLMBaseURL),
		Tokens:   tokens,
		Chunks:   storage.NewChunkRepo(db),
		Dialogs:  storage.NewDialogCacheRepo(db),
		Vectors:  vectors,
		Tenants:  tenants,
		Analyzer: lexical.NewAnalyzer(lexical.WithLemmatizer(lexical.NewSnowballLemmatizer("russian"))),
		Defaults: cfg.Engine,
	})
	slog.Info("Answer engine initialized",
		"chat_model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
		"strict", cfg.Engine.StrictMode,
	)

	router := http.NewRouter(&http.Deps{
		AnswerService: service.NewAnswerService(engine),
		HealthChecks:  checks,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Serving continues on the last loaded table if watching fails.
		if err := tenants.Watch(gctx, logger); err != nil {
			slog.Error("Tenant settings watcher stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
