package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"agent-gateway/internal/gateway"
	"agent-gateway/internal/gateway/mocks"
	"agent-gateway/internal/knowledge"
)

func TestAgentHandler_MissingQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAgentHandler(mocks.NewMockEngine(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/agent", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Missing 'question'") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAgentHandler_QueryParam(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	h := NewAgentHandler(engine)

	var got gateway.Request
	engine.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.Request) (gateway.Result, error) {
			got = req
			return gateway.Result{Text: `[{"ref_id":0,"content":"x"}]`}, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/api/agent?q=what+is+it", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != `[{"ref_id":0,"content":"x"}]` {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got.Question != "what is it" {
		t.Errorf("Question = %q", got.Question)
	}
}

func TestAgentHandler_JSONBodyOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	h := NewAgentHandler(engine)

	var got gateway.Request
	engine.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.Request) (gateway.Result, error) {
			got = req
			return gateway.Result{Text: "answer"}, nil
		})

	body := `{"question":"body question","index":"my-index","agent":"my-agent",
		"reranker":"3.1","maxout":"8000","mode":"responses","includesrc":"true"}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if got.Question != "body question" || got.IndexName != "my-index" || got.AgentName != "my-agent" {
		t.Errorf("request = %+v", got)
	}
	if got.Mode != knowledge.ModeResponses {
		t.Errorf("Mode = %q", got.Mode)
	}
	if got.RerankerThreshold == nil || *got.RerankerThreshold != 3.1 {
		t.Errorf("RerankerThreshold = %v", got.RerankerThreshold)
	}
	if got.MaxOutputSize != 8000 {
		t.Errorf("MaxOutputSize = %d", got.MaxOutputSize)
	}
	if !got.IncludeSources {
		t.Error("IncludeSources = false")
	}
}

func TestAgentHandler_QueryWinsOverBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	h := NewAgentHandler(engine)

	var got gateway.Request
	engine.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.Request) (gateway.Result, error) {
			got = req
			return gateway.Result{Text: "ok"}, nil
		})

	body := `{"question":"from body","index":"body-index"}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent?q=from+query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.Question != "from query" {
		t.Errorf("Question = %q, want query param to win", got.Question)
	}
	if got.IndexName != "body-index" {
		t.Errorf("IndexName = %q, want body fallback for absent query param", got.IndexName)
	}
}

func TestAgentHandler_JSONResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	h := NewAgentHandler(engine)

	engine.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		Return(gateway.Result{
			Answer:  "The answer.\nSources:\n• a.pdf\n",
			Sources: []gateway.Chunk{{RefID: 0, Content: "a", SourceFile: "a.pdf"}},
			JSON:    true,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/agent?q=x&mode=responses&includesrc=true", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q", ct)
	}
	var out struct {
		Answer  string          `json:"answer"`
		Sources []gateway.Chunk `json:"sources"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out.Answer, "The answer.") || len(out.Sources) != 1 {
		t.Errorf("response = %+v", out)
	}
}

func TestAgentHandler_HTMLFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	h := NewAgentHandler(engine)

	engine.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		Return(gateway.Result{Text: "An **important** answer."}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/agent?q=x&format=html", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>important</strong>") {
		t.Errorf("body = %q, want rendered markdown", body)
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Errorf("body = %q, want a full page", body)
	}
}

func TestAgentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "empty query",
			err:        gateway.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Missing 'question'",
		},
		{
			name:       "config error",
			err:        &gateway.ConfigError{Err: errors.New("AGENT_NAME is required")},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Configuration error: AGENT_NAME is required",
		},
		{
			name:       "auth error",
			err:        &gateway.AuthError{Err: errors.New("no credential available")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal error:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := mocks.NewMockEngine(ctrl)
			h := NewAgentHandler(engine)

			engine.EXPECT().
				Answer(gomock.Any(), gomock.Any()).
				Return(gateway.Result{}, tt.err)

			req := httptest.NewRequest(http.MethodGet, "/api/agent?q=x", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAgentHandler_InvalidOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAgentHandler(mocks.NewMockEngine(ctrl))

	for _, target := range []string{
		"/api/agent?q=x&reranker=abc",
		"/api/agent?q=x&maxout=lots",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestAgentHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAgentHandler(mocks.NewMockEngine(ctrl))

	req := httptest.NewRequest(http.MethodDelete, "/api/agent?q=x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
