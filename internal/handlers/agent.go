package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"agent-gateway/internal/contextutil"
	"agent-gateway/internal/gateway"
	"agent-gateway/internal/knowledge"
)

// missingQuestionBody is the exact 400 body for a request without a question.
const missingQuestionBody = `Missing 'question'. Pass as query ?q= or JSON {"question": "..."}`

// AgentHandler answers retrieval questions over HTTP. The question arrives as
// a path parameter, the q query parameter, or a JSON body; query parameters
// win over body fields.
type AgentHandler struct {
	engine gateway.Engine
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(engine gateway.Engine) *AgentHandler {
	return &AgentHandler{engine: engine}
}

// agentParams are the caller-supplied overrides, before type coercion.
type agentParams struct {
	Question       string
	Index          string
	Agent          string
	Reranker       string
	MaxOut         string
	Mode           string
	Debug          string
	IncludeSources string
	Format         string
}

// bodyParams is the JSON body fallback shape.
type bodyParams struct {
	Question   string `json:"question"`
	Index      string `json:"index"`
	Reranker   string `json:"reranker"`
	Agent      string `json:"agent"`
	MaxOut     string `json:"maxout"`
	Mode       string `json:"mode"`
	Debug      string `json:"debug"`
	IncludeSrc string `json:"includesrc"`
}

func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	p := readParams(r)
	if p.Question == "" {
		logger.WarnContext(ctx, "missing question in request")
		writeText(w, http.StatusBadRequest, missingQuestionBody)
		return
	}

	req := gateway.Request{
		Question:       p.Question,
		IndexName:      p.Index,
		AgentName:      p.Agent,
		Debug:          isTrue(p.Debug),
		IncludeSources: isTrue(p.IncludeSources),
	}
	if p.Mode == string(knowledge.ModeResponses) {
		req.Mode = knowledge.ModeResponses
	}
	if p.Reranker != "" {
		threshold, err := strconv.ParseFloat(p.Reranker, 64)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Invalid 'reranker' value")
			return
		}
		req.RerankerThreshold = &threshold
	}
	if p.MaxOut != "" {
		maxOut, err := strconv.Atoi(p.MaxOut)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Invalid 'maxout' value")
			return
		}
		req.MaxOutputSize = maxOut
	}

	result, err := h.engine.Answer(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if result.JSON {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(struct {
			Answer  string          `json:"answer"`
			Sources []gateway.Chunk `json:"sources"`
		}{Answer: result.Answer, Sources: result.Sources})
		return
	}

	if p.Format == "html" {
		writeAnswerHTML(w, result.Text)
		return
	}

	writeText(w, http.StatusOK, result.Text)
}

// readParams extracts the question and overrides from path, query string and
// JSON body, in that priority order.
func readParams(r *http.Request) agentParams {
	q := r.URL.Query()
	p := agentParams{
		Question:       chi.URLParam(r, "question"),
		Index:          q.Get("index"),
		Agent:          q.Get("agent"),
		Reranker:       q.Get("reranker"),
		MaxOut:         q.Get("maxout"),
		Mode:           q.Get("mode"),
		Debug:          q.Get("debug"),
		IncludeSources: q.Get("includesrc"),
		Format:         q.Get("format"),
	}
	if p.Question == "" {
		p.Question = q.Get("q")
	}

	if p.Question != "" && r.Body == nil {
		return p
	}

	var body bodyParams
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return p
		}
	}
	if p.Question == "" {
		p.Question = body.Question
	}
	if p.Index == "" {
		p.Index = body.Index
	}
	if p.Agent == "" {
		p.Agent = body.Agent
	}
	if p.Reranker == "" {
		p.Reranker = body.Reranker
	}
	if p.MaxOut == "" {
		p.MaxOut = body.MaxOut
	}
	if p.Mode == "" {
		p.Mode = body.Mode
	}
	if p.Debug == "" {
		p.Debug = body.Debug
	}
	if p.IncludeSources == "" {
		p.IncludeSources = body.IncludeSrc
	}
	return p
}

// writeError maps gateway failures to HTTP statuses. Only config, auth and
// empty-query errors reach this point; upstream problems already degraded to
// empty results inside the engine.
func (h *AgentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := contextutil.LoggerFromContext(r.Context())

	var cfgErr *gateway.ConfigError
	switch {
	case errors.Is(err, gateway.ErrEmptyQuery):
		logger.WarnContext(r.Context(), "empty question", "error", err)
		writeText(w, http.StatusBadRequest, missingQuestionBody)
	case errors.As(err, &cfgErr):
		logger.WarnContext(r.Context(), "configuration error", "error", err)
		writeText(w, http.StatusBadRequest, fmt.Sprintf("Configuration error: %v", cfgErr.Err))
	default:
		logger.ErrorContext(r.Context(), "gateway call failed", "error", err)
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Internal error: %v", err))
	}
}

func writeText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func isTrue(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return raw == "true" || raw == "1"
}
