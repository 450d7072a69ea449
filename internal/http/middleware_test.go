package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	h := RequestLogger(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/agent", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id not set on response")
	}
}

func TestRequestLogger_EchoesCallerRequestID(t *testing.T) {
	h := RequestLogger(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/agent", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "caller-supplied-id" {
		t.Errorf("X-Request-Id = %q, want caller-supplied-id", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler called for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/agent", nil)
	req.Header.Set("Origin", "https://app.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.test" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Allow-Methods not set")
	}
}

func TestCORS_WildcardWithoutOrigin(t *testing.T) {
	h := CORS(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/agent", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
