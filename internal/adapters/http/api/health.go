// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/evalmatrix/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	proxy ProxyDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(proxy ProxyDependencies) *HealthHandler {
	return &HealthHandler{proxy: proxy}
}

// HandleHealth handles GET /healthz requests by exposing Prometheus metrics
// from the service registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RefreshSystemMetrics()
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type proxyHealth struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	HasKey bool   `json:"hasKey"`
}

// HandleAPIHealth handles GET /api/health for the summarization proxy.
func (h *HealthHandler) HandleAPIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, proxyHealth{
		OK:     true,
		Model:  h.proxy.ProxyModel(),
		HasKey: h.proxy.ProxyEnabled(),
	})
}
