package gateway

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks agent-gateway/internal/gateway Engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"agent-gateway/internal/config"
	"agent-gateway/internal/contextutil"
	"agent-gateway/internal/credential"
	"agent-gateway/internal/knowledge"
)

// Engine turns a natural-language question into either a ranked set of
// evidence passages or a synthesized answer with citations, by delegating to
// a remote knowledge agent.
type Engine interface {
	// Answer runs one gateway invocation. Only configuration, credential and
	// empty-query failures are returned as errors; upstream failures degrade
	// to an empty, well-formed result.
	Answer(ctx context.Context, req Request) (Result, error)
}

type engine struct {
	cfg    *config.Config
	creds  *credential.Resolver
	client knowledge.Retriever
	logger *slog.Logger
}

// NewEngine creates the gateway engine. The client may be either the REST or
// the agent implementation of Retriever; the engine treats them alike.
func NewEngine(cfg *config.Config, creds *credential.Resolver, client knowledge.Retriever) Engine {
	return &engine{
		cfg:    cfg,
		creds:  creds,
		client: client,
		logger: slog.Default(),
	}
}

// Answer runs the per-call pipeline: resolve config, authenticate, build
// messages, retrieve, normalize, assemble. Each invocation is a single
// synchronous unit of work with no shared mutable state beyond the cached
// credential.
func (e *engine) Answer(ctx context.Context, req Request) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	resolved, err := e.cfg.Resolve(config.Overrides{
		IndexName:         req.IndexName,
		AgentName:         req.AgentName,
		RerankerThreshold: req.RerankerThreshold,
		MaxOutputSize:     req.MaxOutputSize,
		TopK:              req.TopK,
	})
	if err != nil {
		return Result{}, &ConfigError{Err: err}
	}

	mode := req.Mode
	if mode == "" {
		mode = knowledge.ModeRetrieve
	}

	cred, err := e.creds.Resolve(ctx)
	if err != nil {
		return Result{}, &AuthError{Err: err}
	}

	msgs, question, err := BuildMessages(req.Question, req.History, mode)
	if err != nil {
		return Result{}, err
	}

	logger.InfoContext(ctx, "retrieval started",
		"mode", mode,
		"index", resolved.IndexName,
		"agent", resolved.AgentName,
	)

	raw, err := e.client.Retrieve(ctx, knowledge.Request{
		Endpoint:          resolved.SearchEndpoint,
		APIVersion:        resolved.APIVersion,
		IndexName:         resolved.IndexName,
		AgentName:         resolved.AgentName,
		Mode:              mode,
		Query:             question,
		Top:               resolved.TopK,
		Messages:          msgs,
		RerankerThreshold: resolved.RerankerThreshold,
		MaxOutputSize:     resolved.MaxOutputSize,
		Credential:        cred,
	})
	if err != nil {
		logger.ErrorContext(ctx, "retrieval call failed",
			"endpoint", resolved.SearchEndpoint,
			"mode", mode,
			"error", err,
		)
		return assemble(mode, nil, "", req.IncludeSources), nil
	}

	if raw.Upstream != nil {
		logger.WarnContext(ctx, "knowledge agent returned an error",
			"status", raw.Upstream.StatusCode,
			"code", raw.Upstream.Code,
			"message", raw.Upstream.Message,
			"endpoint", resolved.SearchEndpoint,
			"mode", mode,
			"body", raw.Upstream.Body,
		)
		return assemble(mode, nil, "", req.IncludeSources), nil
	}

	if req.Debug {
		return Result{Text: prettyJSON(raw.Body)}, nil
	}

	chunks, answer, ok := Normalize(raw, mode)
	if !ok {
		logger.WarnContext(ctx, "unexpected response shape",
			"status", raw.Status,
			"endpoint", resolved.SearchEndpoint,
			"mode", mode,
		)
	}

	logger.InfoContext(ctx, "retrieval completed", "mode", mode, "chunks", len(chunks))

	return assemble(mode, chunks, answer, req.IncludeSources), nil
}

func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
