// Package server provides an HTTP API over the configured handler scopes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/handlers"
	"github.com/zjrosen/nsresolve/internal/journal"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/presentation"
	"github.com/zjrosen/nsresolve/internal/tracing"
)

// ResolverPool hands out the resolver of a scope.
type ResolverPool interface {
	Get(ctx context.Context, name string) (*handlers.Resolver, error)
	Names() []string
	Built(ctx context.Context) []string
}

// History lists journaled resolver events.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Handler provides HTTP endpoints for handler resolution.
type Handler struct {
	cfg     config.Config
	pool    ResolverPool
	history History
	catalog *namespace.Catalog
	metrics http.Handler
	tracer  trace.Tracer
}

// HandlerConfig configures the API handler.
type HandlerConfig struct {
	// Config describes the scopes served (required).
	Config config.Config
	// Pool provides per-scope resolvers (required).
	Pool ResolverPool
	// History serves GET /history (optional).
	History History
	// Catalog serves GET /types. Defaults to namespace.DefaultCatalog.
	Catalog *namespace.Catalog
	// Metrics serves GET /metrics (optional).
	Metrics http.Handler
	// Tracer wraps every request in a span (optional).
	Tracer trace.Tracer
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Catalog == nil {
		cfg.Catalog = namespace.DefaultCatalog
	}
	return &Handler{
		cfg:     cfg.Config,
		pool:    cfg.Pool,
		history: cfg.History,
		catalog: cfg.Catalog,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
	}
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Scopes
	mux.HandleFunc("GET /scopes", h.ListScopes)
	mux.HandleFunc("GET /scopes/{scope}/mappings", h.Mappings)
	mux.HandleFunc("GET /scopes/{scope}/resolve", h.Resolve)

	// Handler types
	mux.HandleFunc("GET /types", h.ListTypes)

	// Journal
	mux.HandleFunc("GET /history", h.History)

	// Health check and metrics
	mux.HandleFunc("GET /health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	return tracing.Middleware(h.tracer, mux)
}

// === Response Types ===

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ListScopesResponse is the response body for listing scopes.
type ListScopesResponse struct {
	Scopes []presentation.ScopeDTO `json:"scopes"`
	Total  int                     `json:"total"`
}

// MappingsResponse is the response body for a scope's mapping table.
type MappingsResponse struct {
	Scope    string              `json:"scope"`
	Resolver string              `json:"resolver"`
	Mappings []namespace.Mapping `json:"mappings"`
	Total    int                 `json:"total"`
}

// ListTypesResponse is the response body for listing handler types.
type ListTypesResponse struct {
	Types []presentation.TypeDTO `json:"types"`
	Total int                    `json:"total"`
}

// HistoryResponse is the response body for the event journal.
type HistoryResponse struct {
	Entries []journal.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// === Handlers ===

// ListTypes returns every registered handler type.
// GET /types
func (h *Handler) ListTypes(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, ListTypesResponse{
		Types: presentation.FromCatalog(h.catalog),
		Total: h.catalog.Len(),
	})
}

// ListScopes returns every configured scope.
// GET /scopes
func (h *Handler) ListScopes(w http.ResponseWriter, r *http.Request) {
	built := make(map[string]bool)
	for _, name := range h.pool.Built(r.Context()) {
		built[name] = true
	}

	names := h.pool.Names()
	resp := ListScopesResponse{Scopes: make([]presentation.ScopeDTO, 0, len(names))}
	for _, name := range names {
		sc, err := h.cfg.Scope(name)
		if err != nil {
			continue
		}
		roots := sc.Roots
		if roots == nil {
			roots = []string{}
		}
		resp.Scopes = append(resp.Scopes, presentation.ScopeDTO{
			Name:         sc.Name,
			ResourcePath: sc.ResourcePath,
			Builtin:      sc.IncludesBuiltin(),
			Roots:        roots,
			Built:        built[sc.Name],
		})
	}
	resp.Total = len(resp.Scopes)

	h.writeJSON(w, http.StatusOK, resp)
}

// Mappings returns the mapping table of a scope, loading it if needed.
// GET /scopes/{scope}/mappings
func (h *Handler) Mappings(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	res, ok := h.resolver(w, r, scope)
	if !ok {
		return
	}

	mappings, err := res.Mappings(r.Context())
	if err != nil {
		h.writeResolverError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, MappingsResponse{
		Scope:    scope,
		Resolver: res.ID(),
		Mappings: mappings,
		Total:    len(mappings),
	})
}

// Resolve resolves the namespace key given as ?key=.
// GET /scopes/{scope}/resolve?key=K
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "key is required", "")
		return
	}

	res, ok := h.resolver(w, r, r.PathValue("scope"))
	if !ok {
		return
	}

	handler, found, err := res.Resolve(r.Context(), key)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "unknown_key", "No handler mapped for namespace", key)
		return
	}

	h.writeJSON(w, http.StatusOK, presentation.FromResolve(key, handler, found, nil))
}

// History returns the most recent journal entries.
// GET /history?limit=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, http.StatusOK, HistoryResponse{Entries: []journal.Entry{}})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer", s)
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "journal_error", "Failed to read journal", err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Total: len(entries)})
}

// Health returns the health status of the API.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// === Helper Methods ===

func (h *Handler) resolver(w http.ResponseWriter, r *http.Request, scope string) (*handlers.Resolver, bool) {
	res, err := h.pool.Get(r.Context(), scope)
	if err != nil {
		if errors.Is(err, config.ErrUnknownScope) {
			h.writeError(w, http.StatusNotFound, "unknown_scope", "Scope not configured", scope)
		} else {
			h.writeError(w, http.StatusInternalServerError, "scope_error", "Failed to build scope", err.Error())
		}
		return nil, false
	}
	return res, true
}

func (h *Handler) writeResolverError(w http.ResponseWriter, err error) {
	var resErr *namespace.ResolutionError
	switch {
	case errors.Is(err, namespace.ErrFatalInit):
		h.writeError(w, http.StatusServiceUnavailable, "mappings_unavailable", "Handler mappings could not be loaded", err.Error())
	case errors.As(err, &resErr):
		h.writeError(w, http.StatusUnprocessableEntity, "resolution_failed", "Handler could not be resolved", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Unexpected resolver error", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatServer, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
