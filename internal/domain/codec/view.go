package codec

import (
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/scoring"
	"github.com/okian/evalmatrix/internal/domain/types"
)

// ToView projects s into the read model served to clients, with the
// aggregate recomputed.
func ToView(s *model.Session) types.SessionView {
	agg := scoring.ComputeSession(s)
	r := s.Range()

	list := s.Criteria()
	criteria := make([]types.CriterionView, len(list))
	for i, cr := range list {
		var rec map[string]float64
		if len(cr.RecommendedWeights) > 0 {
			rec = make(map[string]float64, len(cr.RecommendedWeights))
			for tier, w := range cr.RecommendedWeights {
				rec[string(tier)] = w
			}
		}
		criteria[i] = types.CriterionView{
			ID:                 cr.ID,
			Layer:              cr.Layer,
			Name:               cr.Name,
			Description:        cr.Description,
			Examples:           cr.Examples,
			Anchors:            cr.Anchors,
			RecommendedWeights: rec,
			Weight:             cr.Weight,
			Score:              int(cr.Score),
			Evidence:           cr.Evidence,
			Status:             scoring.Status(cr.Score),
		}
	}

	return types.SessionView{
		ID:                  s.ID,
		Meta:                MetaToWire(s.Meta),
		UseWeights:          s.UseWeights,
		AllowExtremeWeights: s.ExtendedWeights(),
		WeightRange:         [2]float64{r.Min, r.Max},
		WeightPreset:        s.Preset,
		Strengths:           s.Strengths,
		FocusAreas:          s.FocusAreas,
		Criteria:            criteria,
		Summary:             Summary(agg),
	}
}

// Summary converts an aggregate into its labelled wire form.
func Summary(agg scoring.Aggregate) types.SummaryView {
	perLayer := make(map[string]types.LayerScore, len(agg.PerLayer))
	for name, sc := range agg.PerLayer {
		perLayer[name] = types.LayerScore{Count: sc.Count, Score: sc.Score}
	}
	return types.SummaryView{
		Overall:      types.LayerScore{Count: agg.Overall.Count, Score: agg.Overall.Score},
		OverallLabel: scoring.OverallLabel(agg.Overall),
		PerLayer:     perLayer,
		Layers:       agg.Layers,
		Missing:      agg.Missing,
		Filled:       agg.Filled,
	}
}
