package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"agent-gateway/internal/gateway"
	"agent-gateway/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine gateway.Engine
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	agentHandler := handlers.NewAgentHandler(deps.Engine)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/agent", agentHandler)
		r.Method(http.MethodPost, "/agent", agentHandler)
		r.Method(http.MethodGet, "/agent/{question}", agentHandler)
	})

	r.Get("/healthz", handlers.Health)

	return r
}
