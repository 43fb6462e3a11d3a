package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector index backends.
const (
	VectorBackendNone     = "none"
	VectorBackendQdrant   = "qdrant"
	VectorBackendPgVector = "pgvector"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	OAuthTokenURL      string
	OAuthScope         string
	EmbeddingCacheSize int
	DBPath             string
	VectorBackend      string
	QdrantURL          string
	QdrantCollection   string
	PostgresDSN        string
	TenantSettingsPath string
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string

	// Engine holds the process-wide defaults for answer calls.
	Engine Settings
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up a few levels to find a project-level .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", ""),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", ""),
		OAuthTokenURL:      getEnv("OAUTH_TOKEN_URL", ""),
		OAuthScope:         getEnv("OAUTH_SCOPE", ""),
		DBPath:             getEnv("DB_PATH", "./data/groundedkb.db"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendNone)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		PostgresDSN:        getEnv("PG_DSN", ""),
		TenantSettingsPath: getEnv("TENANT_SETTINGS_PATH", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cacheSize, err := getEnvInt("EMBEDDING_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	cfg.EmbeddingCacheSize = cacheSize

	engine, err := engineDefaults(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine

	switch cfg.VectorBackend {
	case VectorBackendNone, VectorBackendQdrant:
	case VectorBackendPgVector:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("PG_DSN is required when VECTOR_BACKEND is pgvector")
		}
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be one of none, qdrant, pgvector, got %q", cfg.VectorBackend)
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// engineDefaults builds the process-wide answer settings from DefaultSettings
// and the RAG_* environment variables.
func engineDefaults(cfg *Config) (Settings, error) {
	s := DefaultSettings()
	s.EmbeddingModel = cfg.EmbeddingModelName
	s.EmbeddingAPIBase = cfg.EmbeddingBaseURL
	s.ChatModel = cfg.LLMModelName
	s.ChatAPIBase = cfg.LLMBaseURL

	var err error
	if s.TopK, err = getEnvInt("RAG_TOP_K", s.TopK); err != nil {
		return Settings{}, err
	}
	if s.MinScore, err = getEnvFloat("RAG_MIN_SCORE", s.MinScore); err != nil {
		return Settings{}, err
	}
	if s.StrictMode, err = getEnvBool("RAG_STRICT", s.StrictMode); err != nil {
		return Settings{}, err
	}
	if s.ConfidenceMin, err = getEnvFloat("RAG_CONFIDENCE_MIN", s.ConfidenceMin); err != nil {
		return Settings{}, err
	}
	if s.ConfidenceMinEvidence, err = getEnvInt("RAG_CONFIDENCE_MIN_EVIDENCE", s.ConfidenceMinEvidence); err != nil {
		return Settings{}, err
	}
	if s.NoisePenalty, err = getEnvFloat("RAG_NOISE_PENALTY", s.NoisePenalty); err != nil {
		return Settings{}, err
	}
	if s.StyleRewrite, err = getEnvBool("RAG_STYLE_REWRITE", s.StyleRewrite); err != nil {
		return Settings{}, err
	}
	if s.LineRefs, err = getEnvBool("RAG_LINE_REFS", s.LineRefs); err != nil {
		return Settings{}, err
	}
	timeout, err := getEnvInt("PROVIDER_TIMEOUT_SECONDS", int(s.ProviderTimeout/time.Second))
	if err != nil {
		return Settings{}, err
	}
	s.ProviderTimeout = time.Duration(timeout) * time.Second

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid engine settings: %w", err)
	}
	return s, nil
}

func parseLogLevel(v string) (slog.Level, error) {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", v)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return v, nil
}
