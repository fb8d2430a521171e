// Package scoring computes weighted aggregate scores from scored criteria.
//
// Every function here is total: any slice of criteria yields a defined
// result. A scope with no contributing criteria reports Count == 0; callers
// must test HasData rather than compare Score with zero.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/evalmatrix/internal/domain/model"
)

// Labels for rounded scores.
const (
	LabelCritical  = "Critical"
	LabelLow       = "Low"
	LabelExpected  = "Expected"
	LabelGood      = "Good"
	LabelReference = "Reference"
	LabelNone      = "—"
	LabelUnscored  = "Unscored"

	StatusRated   = "Rated"
	StatusPending = "Pending"
)

// ScopeScore is the weighted mean for one scope and the number of criteria
// that contributed to it.
type ScopeScore struct {
	Score float64
	Count int
}

// HasData reports whether any criterion contributed.
func (s ScopeScore) HasData() bool { return s.Count > 0 }

// Aggregate is the result of Compute.
type Aggregate struct {
	Overall  ScopeScore
	PerLayer map[string]ScopeScore
	// Layers lists layer names in first-appearance order.
	Layers []string
	// Missing counts criteria without a rating.
	Missing int
	// Filled counts criteria with a rating.
	Filled int
}

type acc struct {
	num, den float64
	n        int
}

func (a *acc) add(score, w float64) {
	a.num += score * w
	a.den += w
	a.n++
}

func (a acc) scope() ScopeScore {
	if a.den <= 0 {
		return ScopeScore{}
	}
	return ScopeScore{Score: a.num / a.den, Count: a.n}
}

// Compute partitions rated criteria by layer and returns the weighted mean
// per layer and overall. With useWeights false every weight counts as 1.
// A rated criterion whose effective weight is zero does not contribute.
func Compute(criteria []model.ScoredCriterion, useWeights bool) Aggregate {
	agg := Aggregate{PerLayer: make(map[string]ScopeScore)}
	layers := make(map[string]*acc)
	var overall acc

	for _, c := range criteria {
		if _, seen := layers[c.Layer]; !seen {
			layers[c.Layer] = &acc{}
			agg.Layers = append(agg.Layers, c.Layer)
		}
		if !c.Score.Rated() {
			agg.Missing++
			continue
		}
		agg.Filled++

		w := 1.0
		if useWeights {
			w = c.Weight
		}
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		layers[c.Layer].add(float64(c.Score), w)
		overall.add(float64(c.Score), w)
	}

	for name, a := range layers {
		agg.PerLayer[name] = a.scope()
	}
	agg.Overall = overall.scope()
	return agg
}

// ComputeSession is Compute over a session's criteria and weighting flag.
func ComputeSession(s *model.Session) Aggregate {
	return Compute(s.Criteria(), s.UseWeights)
}

// Label names a rounded 1..5 score.
func Label(v int) string {
	switch v {
	case 1:
		return LabelCritical
	case 2:
		return LabelLow
	case 3:
		return LabelExpected
	case 4:
		return LabelGood
	case 5:
		return LabelReference
	default:
		return LabelNone
	}
}

// OverallLabel renders a scope as "N – Label", or Unscored when it has no
// data or rounds to zero.
func OverallLabel(s ScopeScore) string {
	if !s.HasData() {
		return LabelUnscored
	}
	r := int(math.Round(s.Score))
	if r == 0 {
		return LabelUnscored
	}
	return fmt.Sprintf("%d – %s", r, Label(r))
}

// Status is the per-criterion completeness marker.
func Status(s model.Score) string {
	if s.Rated() {
		return StatusRated
	}
	return StatusPending
}
