// Package httpx contains the HTTP delivery layer for imeigen. It maps JSON
// requests onto the application service, validates query and body input, and
// translates service errors into status codes. Handlers are split across files
// (imei.go, prefixes.go, health.go, errors.go).
package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Generate(ctx context.Context, model string, n int) ([]app.Generated, error)
	GenerateFromPrefix(ctx context.Context, prefix string, n int) ([]app.Generated, error)
	Validate(ctx context.Context, candidate string) (domain.Validation, error)
	AddPrefix(ctx context.Context, prefix, model string) (domain.PrefixRecord, error)
	Import(ctx context.Context, lines []app.ImportLine) (app.ImportReport, error)
	List(ctx context.Context, model string) ([]domain.PrefixRecord, error)
	Models(ctx context.Context) ([]app.ModelCount, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

var _ ServicePort = (*app.Service)(nil)

// DefaultMaxBody bounds JSON and import request bodies when MaxBody is unset.
const DefaultMaxBody = 4 << 20

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	Logger    *slog.Logger
	MaxBody   int64                       // request body limit in bytes
	Readiness func(context.Context) error // optional readiness check
	Metrics   http.Handler                // optional /metrics handler
	Timeout   time.Duration               // per-request deadline (0 disables)

	validate *validator.Validate
}

// New returns a configured Handler.
// svc: application service port implementation.
// logger: request and error logger (nil => slog.Default()).
// readiness: optional check function for /readyz (nil => always ready).
func New(svc ServicePort, logger *slog.Logger, readiness func(context.Context) error) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service:   svc,
		Logger:    logger,
		MaxBody:   DefaultMaxBody,
		Readiness: readiness,
		Timeout:   30 * time.Second,
		validate:  validator.New(),
	}
}

func (h *Handler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New()
	}
	return h.validate
}

// Router constructs and returns an http.Handler with all routes mounted and
// the middleware chain applied.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationIDMiddleware)
	r.Use(h.requestLogger)
	r.Use(h.secureHeaders)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		if h.Timeout > 0 {
			api.Use(middleware.Timeout(h.Timeout))
		}
		api.Get("/imei", h.handleGenerate)
		api.Get("/imei/{imei}", h.handleValidate)
		api.Get("/prefixes", h.handleListPrefixes)
		api.Post("/prefixes", h.handleAddPrefix)
		api.Post("/prefixes/import", h.handleImport)
		api.Delete("/prefixes/{prefix}", h.handleDeletePrefix)
		api.Get("/models", h.handleModels)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
