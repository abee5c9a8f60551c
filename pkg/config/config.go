package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	apperrors "janus/pkg/errors"
)

// Backend selects which persistence implementation the process runs against.
const (
	BackendGraph = "graph"
	BackendFile  = "file"
)

// Config holds all application configuration.
type Config struct {
	// App
	Port    string
	Env     string
	Backend string

	// Neo4j (graph backend)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// File backend
	ContentRoot string

	// Prompt preview (OpenAI-compatible endpoint)
	LiteLLMURL       string
	ModelID          string
	OpenRouterAPIKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		Backend:          getEnv("JANUS_BACKEND", BackendFile),
		Neo4jURI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:        getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    getEnv("NEO4J_PASSWORD", "password"),
		ContentRoot:      getEnv("JANUS_ROOT", "."),
		LiteLLMURL:       getEnv("LITELLM_URL", "http://localhost:4000"),
		ModelID:          getEnv("MODEL_ID", "openrouter/anthropic/claude-3.5-sonnet"),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set for the
// selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGraph:
		if c.Neo4jURI == "" {
			return apperrors.NewConfig("NEO4J_URI is required")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfig("NEO4J_USER is required")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfig("NEO4J_PASSWORD is required")
		}
	case BackendFile:
		if c.ContentRoot == "" {
			return apperrors.NewConfig("JANUS_ROOT is required")
		}
	default:
		return apperrors.NewConfig(fmt.Sprintf("JANUS_BACKEND must be %q or %q, got %q", BackendGraph, BackendFile, c.Backend))
	}
	// Preview endpoint credentials are optional; the preview route reports
	// its own error when unconfigured.
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
