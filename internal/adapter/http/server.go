package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"injtracker/internal/app"
	"injtracker/internal/metrics"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	injections *app.InjectionService
	recommend  *app.RecommendationService
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New creates a Server wired to the given application services. m may be nil.
func New(is *app.InjectionService, rs *app.RecommendationService, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{injections: is, recommend: rs, metrics: m, log: log}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := chi.NewRouter()
	api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.Route("/injections", func(r chi.Router) {
		r.Get("/", s.handleListInjections)
		r.Post("/", s.handleRecordInjection)
		r.Delete("/", s.handleClearInjections)
		r.Post("/import", s.handleImport)
		r.Get("/export", s.handleExport)
		r.Delete("/{id}", s.handleRemoveInjection)
	})
	api.Get("/summary", s.handleSummary)

	api.Route("/recommend", func(r chi.Router) {
		r.Get("/field", s.handleField)
		r.Get("/quadrants", s.handleQuadrants)
		r.Get("/score", s.handleScore)
		r.Get("/warning", s.handleWarning)
		r.Get("/next", s.handleNextDue)
	})
	api.Handle("/metrics", s.metrics.Handler())

	root := chi.NewRouter()
	root.Use(chimw.RequestID)
	root.Use(chimw.Recoverer)
	root.Use(s.loggingMiddleware)
	root.Use(withNoCache)
	root.Mount("/api", api)
	return root
}
