package api

import (
	"net/http"

	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/weights"
)

// CatalogHandler serves the criteria catalog.
type CatalogHandler struct {
	body catalogResponse
}

type catalogResponse struct {
	Layers   []string              `json:"layers"`
	Tiers    []catalog.Tier        `json:"tiers"`
	Criteria []catalog.Criterion   `json:"criteria"`
	Ranges   map[string][2]float64 `json:"weightRanges"`
}

// NewCatalogHandler creates a handler for cat. The catalog is immutable, so
// the response is built once.
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{body: catalogResponse{
		Layers:   cat.Layers(),
		Tiers:    catalog.Tiers(),
		Criteria: cat.Criteria(),
		Ranges: map[string][2]float64{
			"standard": {weights.Standard.Min, weights.Standard.Max},
			"extended": {weights.Extended.Min, weights.Extended.Max},
		},
	}}
}

// HandleCatalog handles GET /catalog.
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.body)
}
