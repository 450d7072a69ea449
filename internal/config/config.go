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

// Hard-coded fallbacks. These sit at the bottom of the precedence chain:
// per-call override > environment > fallback.
const (
	DefaultAPIVersion        = "2025-05-01-preview"
	DefaultIndexName         = "agentic-rag"
	DefaultRerankerThreshold = 2.5
	DefaultMaxOutputSize     = 16000
	// DefaultTopK is the canonical top-K for retrieve-mode calls. The direct
	// REST path and the CLI tester historically disagreed (5 vs 50); 5 is the
	// documented default for both.
	DefaultTopK           = 5
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds the process-wide gateway configuration. It is read-only after
// Load; per-call overrides are merged functionally via Resolve.
type Config struct {
	SearchEndpoint    string
	SearchAPIKey      string
	APIVersion        string
	IndexName         string
	AgentName         string
	RerankerThreshold float64
	MaxOutputSize     int
	TopK              int
	RequestTimeout    time.Duration
	APIPort           string
	LogLevel          slog.Level
	LogFormat         string
}

// Overrides is the per-call patch merged over the process defaults. Zero
// values mean "no override".
type Overrides struct {
	IndexName         string
	AgentName         string
	RerankerThreshold *float64
	MaxOutputSize     int
	TopK              int
}

// Resolved is the effective configuration for one gateway call.
type Resolved struct {
	SearchEndpoint    string
	APIVersion        string
	IndexName         string
	AgentName         string
	RerankerThreshold float64
	MaxOutputSize     int
	TopK              int
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be
// loaded automatically; variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (where go.mod lives).
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		SearchEndpoint: strings.TrimRight(getEnv("AZURE_SEARCH_ENDPOINT", ""), "/"),
		SearchAPIKey:   firstEnv("SEARCH_API_KEY", "AZURE_SEARCH_KEY"),
		APIVersion:     getEnv("API_VERSION", DefaultAPIVersion),
		IndexName:      getEnv("INDEX_NAME", DefaultIndexName),
		AgentName:      getEnv("AGENT_NAME", ""),
		APIPort:        getEnv("API_PORT", "9000"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	if cfg.RerankerThreshold, err = floatEnv("RERANKER_THRESHOLD", DefaultRerankerThreshold); err != nil {
		return nil, err
	}
	if cfg.MaxOutputSize, err = intEnv("MAX_OUTPUT_SIZE", DefaultMaxOutputSize); err != nil {
		return nil, err
	}
	if cfg.TopK, err = intEnv("TOP_K", DefaultTopK); err != nil {
		return nil, err
	}

	timeoutSecs, err := intEnv("REQUEST_TIMEOUT_SECONDS", int(DefaultRequestTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(timeoutSecs) * time.Second

	if cfg.SearchEndpoint == "" {
		return nil, fmt.Errorf("AZURE_SEARCH_ENDPOINT is required")
	}

	return cfg, nil
}

// Resolve merges per-call overrides over the process defaults. It fails when
// a mandatory value is still missing after defaulting; that is a fatal,
// non-retryable condition for the call.
func (c *Config) Resolve(o Overrides) (Resolved, error) {
	r := Resolved{
		SearchEndpoint:    c.SearchEndpoint,
		APIVersion:        c.APIVersion,
		IndexName:         c.IndexName,
		AgentName:         c.AgentName,
		RerankerThreshold: c.RerankerThreshold,
		MaxOutputSize:     c.MaxOutputSize,
		TopK:              c.TopK,
	}

	if o.IndexName != "" {
		r.IndexName = o.IndexName
	}
	if o.AgentName != "" {
		r.AgentName = o.AgentName
	}
	if o.RerankerThreshold != nil {
		r.RerankerThreshold = *o.RerankerThreshold
	}
	if o.MaxOutputSize > 0 {
		r.MaxOutputSize = o.MaxOutputSize
	}
	if o.TopK > 0 {
		r.TopK = o.TopK
	}

	if r.SearchEndpoint == "" {
		return Resolved{}, fmt.Errorf("search endpoint is not configured")
	}
	if r.IndexName == "" {
		return Resolved{}, fmt.Errorf("index name is not configured")
	}
	if r.AgentName == "" {
		return Resolved{}, fmt.Errorf("agent name is not configured")
	}

	return r, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty value among the given variables.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func intEnv(key string, defaultValue int) (int, error) {
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

func floatEnv(key string, defaultValue float64) (float64, error) {
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

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
