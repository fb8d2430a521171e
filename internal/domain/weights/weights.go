// Package weights holds the weight policy: the allowed weight ranges and the
// seniority presets that bulk-assign recommended weights.
package weights

import (
	"math"

	"github.com/okian/evalmatrix/internal/domain/catalog"
)

// Range is an inclusive [Min, Max] bound on criterion weights.
type Range struct {
	Min float64
	Max float64
}

// Policy ranges.
var (
	Standard = Range{Min: 0.5, Max: 2.0}
	Extended = Range{Min: 0.0, Max: 3.0}
)

// RangeFor returns the extended range when extended is set and the standard
// range otherwise.
func RangeFor(extended bool) Range {
	if extended {
		return Extended
	}
	return Standard
}

// Contains reports whether v lies within r.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp bounds v to r. NaN maps to r.Min.
func Clamp(v float64, r Range) float64 {
	if math.IsNaN(v) {
		return r.Min
	}
	return math.Min(r.Max, math.Max(r.Min, v))
}

// ApplyPreset returns a new weight map where every criterion with a
// recommendation for tier gets that recommendation clamped to r. Criteria
// without one keep their value from current (clamped to r as well). current
// is not modified.
func ApplyPreset(tier catalog.Tier, cat *catalog.Catalog, current map[string]float64, r Range) map[string]float64 {
	out := make(map[string]float64, cat.Len())
	for _, c := range cat.Criteria() {
		w, ok := current[c.ID]
		if !ok {
			w = c.DefaultWeight
		}
		if rec, has := c.Recommended(tier); has {
			w = rec
		}
		out[c.ID] = Clamp(w, r)
	}
	return out
}
