// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/evalmatrix/internal/adapters/repository"
	service "github.com/okian/evalmatrix/internal/app"
	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/types"
)

// maxBodyBytes bounds request bodies, including imported documents.
const maxBodyBytes = 1 << 20

// SessionDependencies are the session operations used by the handlers.
type SessionDependencies interface {
	CreateSession(ctx context.Context) (types.SessionView, error)
	Session(ctx context.Context, id string) (types.SessionView, error)
	DeleteSession(ctx context.Context, id string) error
	UpdateMeta(ctx context.Context, id string, patch service.MetaPatch) (types.SessionView, error)
	UpdateCriterion(ctx context.Context, id, cid string, patch service.CriterionPatch) (types.SessionView, error)
	ClearScore(ctx context.Context, id, cid string) (types.SessionView, error)
	SetPolicy(ctx context.Context, id string, patch service.PolicyPatch) (types.SessionView, error)
	ApplyPreset(ctx context.Context, id, preset string) (types.SessionView, error)
	Reset(ctx context.Context, id string) (types.SessionView, error)
	Export(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, id string, data []byte) (types.SessionView, codec.ImportStats, error)
	RequestAnalysis(ctx context.Context, id string) (types.AnalysisView, error)
	Analysis(ctx context.Context, id string) (types.AnalysisView, error)
	Report(ctx context.Context, id string, w io.Writer) error
}

// ProxyDependencies back the summarization proxy.
type ProxyDependencies interface {
	ProxyEnabled() bool
	ProxyModel() string
	Summarize(ctx context.Context, evaluation []byte) (string, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	ProxyDependencies
	StatsProvider
	Catalog() *catalog.Catalog
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	catalogHandler *CatalogHandler
	sessionHandler *SessionHandler
	proxyHandler   *ProxyHandler
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	corsOrigin string
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value for the proxy.
func WithCORSOrigin(origin string) Option {
	return func(c *serverConfig) {
		if origin != "" {
			c.corsOrigin = origin
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{corsOrigin: "*"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		catalogHandler: NewCatalogHandler(deps.Catalog()),
		sessionHandler: NewSessionHandler(deps),
		proxyHandler:   NewProxyHandler(deps, cfg.corsOrigin),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /catalog", MetricsMiddleware(s.catalogHandler.HandleCatalog, "catalog"))

	mux.HandleFunc("GET /api/health", MetricsMiddleware(s.healthHandler.HandleAPIHealth, "api_health"))
	mux.HandleFunc("/api/analyze", MetricsMiddleware(s.proxyHandler.HandleAnalyze, "api_analyze"))

	h := s.sessionHandler
	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleDelete, "session"))
	mux.HandleFunc("PATCH /sessions/{id}/meta", MetricsMiddleware(h.HandleMeta, "session_meta"))
	mux.HandleFunc("PUT /sessions/{id}/criteria/{cid}", MetricsMiddleware(h.HandleCriterion, "session_criterion"))
	mux.HandleFunc("DELETE /sessions/{id}/criteria/{cid}/score", MetricsMiddleware(h.HandleClearScore, "session_criterion"))
	mux.HandleFunc("PUT /sessions/{id}/policy", MetricsMiddleware(h.HandlePolicy, "session_policy"))
	mux.HandleFunc("POST /sessions/{id}/preset", MetricsMiddleware(h.HandlePreset, "session_preset"))
	mux.HandleFunc("POST /sessions/{id}/reset", MetricsMiddleware(h.HandleReset, "session_reset"))
	mux.HandleFunc("GET /sessions/{id}/export", MetricsMiddleware(h.HandleExport, "session_export"))
	mux.HandleFunc("POST /sessions/{id}/import", MetricsMiddleware(h.HandleImport, "session_import"))
	mux.HandleFunc("POST /sessions/{id}/analysis", MetricsMiddleware(h.HandleRequestAnalysis, "session_analysis"))
	mux.HandleFunc("GET /sessions/{id}/analysis", MetricsMiddleware(h.HandleGetAnalysis, "session_analysis"))
	mux.HandleFunc("GET /sessions/{id}/report", MetricsMiddleware(h.HandleReport, "session_report"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates domain and service errors into responses.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrUnknownCriterion):
		return http.StatusNotFound, "unknown_criterion"
	case errors.Is(err, model.ErrInvalidScore):
		return http.StatusBadRequest, "invalid_score"
	case errors.Is(err, model.ErrUnknownTier):
		return http.StatusBadRequest, "unknown_preset"
	case errors.Is(err, codec.ErrMalformedDocument):
		return http.StatusBadRequest, "malformed_document"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrCapacity):
		return http.StatusServiceUnavailable, "capacity"
	case errors.Is(err, service.ErrAnalysisBusy):
		return http.StatusServiceUnavailable, "analysis_busy"
	case errors.Is(err, service.ErrAnalysisDisabled):
		return http.StatusServiceUnavailable, "analysis_disabled"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// readBody reads a bounded request body.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, maxBodyBytes)
	}
	return body, nil
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrBadRequest, err)
	}
	return nil
}
