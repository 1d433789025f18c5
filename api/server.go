/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind proxies
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. RequestLogger: Structured request logs (zerolog)
  5. CORS:          Cross-origin requests for frontend

ROUTE GROUPS:
  /api/authors/*      Author management and statements
  /api/titles/*       Titles, ownership, sales, closes
  /api/contracts/*    Contracts and projections
  /api/sales          Sales feed
  /api/returns/*      Returns workflow
  /api/periods/*      Period calendar and close
  /api/runs           Close-run history
  /api/audit          Audit trail
  /api/scenarios/*    Demo scenarios
  /api/admin/*        Admin operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/warp/royalty-engine/obs"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger zerolog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Author routes
		r.Route("/authors", func(r chi.Router) {
			r.Get("/", h.ListAuthors)
			r.Post("/", h.CreateAuthor)
			r.Get("/{authorID}", h.GetAuthor)
			r.Get("/{authorID}/statements", h.GetAuthorStatements)
		})

		// Title routes
		r.Route("/titles", func(r chi.Router) {
			r.Get("/", h.ListTitles)
			r.Post("/", h.CreateTitle)
			r.Get("/{titleID}", h.GetTitle)
			r.Get("/{titleID}/ownership", h.GetOwnership)
			r.Put("/{titleID}/ownership", h.SetOwnership)
			r.Get("/{titleID}/contracts", h.ListTitleContracts)
			r.Get("/{titleID}/sales", h.ListTitleSales)
			r.Get("/{titleID}/statements", h.GetTitleStatements)
			r.Post("/{titleID}/close", h.CloseTitle)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", h.CreateContract)
			r.Get("/{contractID}", h.GetContract)
			r.Post("/{contractID}/projection", h.ProjectEarnOut)
		})

		// Sales feed routes
		r.Post("/sales", h.RecordSale)
		r.Route("/returns", func(r chi.Router) {
			r.Post("/", h.RecordReturn)
			r.Get("/pending", h.ListPendingReturns)
			r.Post("/{entryID}/approve", h.ApproveReturn)
			r.Post("/{entryID}/reject", h.RejectReturn)
		})

		// Period close routes
		r.Route("/periods", func(r chi.Router) {
			r.Get("/current", h.GetCurrentPeriod)
			r.Post("/close", h.ClosePeriod)
		})
		r.Get("/runs", h.ListStatementRuns)

		// Audit trail
		r.Get("/audit", h.QueryAuditLog)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page with an API index; there is no bundled frontend.
	r.Get("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Royalty Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Royalty Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/authors">/api/authors</a> - List authors</li>
<li><a href="/api/titles">/api/titles</a> - List titles</li>
<li><a href="/api/runs">/api/runs</a> - Close-run history</li>
<li><a href="/api/audit">/api/audit</a> - Audit trail</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
