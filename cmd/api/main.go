package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"agent-gateway/internal/config"
	"agent-gateway/internal/credential"
	"agent-gateway/internal/gateway"
	"agent-gateway/internal/http"
	"agent-gateway/internal/knowledge"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	creds := credential.NewResolver(cfg.SearchAPIKey)
	if cfg.SearchAPIKey != "" {
		slog.Info("Using API key authentication for search")
	} else {
		slog.Info("Using ambient identity for search", "scope", credential.SearchScope)
	}

	client := knowledge.NewRESTClient(cfg.RequestTimeout)
	engine := gateway.NewEngine(cfg, creds, client)
	slog.Info("Gateway engine initialized",
		"endpoint", cfg.SearchEndpoint,
		"index", cfg.IndexName,
		"agent", cfg.AgentName,
		"api_version", cfg.APIVersion,
	)

	router := http.NewRouter(&http.Deps{Engine: engine})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
