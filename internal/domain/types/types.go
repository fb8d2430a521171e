// Package types contains the wire shapes shared across the application:
// the exchanged snapshot document and the read-only views served to clients.
package types

// SnapshotMeta is the metadata block of a snapshot.
type SnapshotMeta struct {
	EvaluateeName string `json:"evaluateeName"`
	Role          string `json:"role"`
	Project       string `json:"project"`
	Period        string `json:"period"`
	Evaluator     string `json:"evaluator"`
	CoEvaluator   string `json:"coEvaluator"`
	CreatedAt     string `json:"createdAt"`
}

// SnapshotCriterion is one criterion as exported.
type SnapshotCriterion struct {
	ID          string  `json:"id"`
	Layer       string  `json:"layer"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Score       int     `json:"score"`
	Evidence    string  `json:"evidence"`
}

// LayerScore is a scope aggregate; Count == 0 means no data.
type LayerScore struct {
	Count int     `json:"count"`
	Score float64 `json:"score"`
}

// Computed is the informational aggregate block. It is recomputed on export
// and ignored on import.
type Computed struct {
	Overall      float64               `json:"overall"`
	PerLayer     map[string]LayerScore `json:"perLayer"`
	CreatedAtISO string                `json:"createdAtISO"`
}

// Snapshot is the exchanged evaluation document.
type Snapshot struct {
	Meta                SnapshotMeta        `json:"meta"`
	UseWeights          bool                `json:"useWeights"`
	AllowExtremeWeights bool                `json:"allowExtremeWeights"`
	WeightPreset        string              `json:"weightPreset"`
	Strengths           string              `json:"strengths"`
	FocusAreas          string              `json:"focusAreas"`
	Criteria            []SnapshotCriterion `json:"criteria"`
	Computed            Computed            `json:"computed"`
	Version             string              `json:"version"`
}

// Analysis is the normalized result of the external summarization service.
type Analysis struct {
	Summary      string   `json:"summary"`
	Narrative    string   `json:"narrative"`
	OverallScore *float64 `json:"overallScore,omitempty"`
	Strengths    []string `json:"strengths"`
	Risks        []string `json:"risks"`
	Focus        []string `json:"focus"`
	Actions      []string `json:"actions"`
	Model        string   `json:"model,omitempty"`
	// Aliases lists deprecated response keys that were used as fallbacks.
	Aliases []string `json:"deprecatedAliases,omitempty"`
}

// Analysis states.
const (
	AnalysisIdle    = "idle"
	AnalysisPending = "pending"
	AnalysisReady   = "ready"
	AnalysisFailed  = "failed"
)

// AnalysisView is the advisory analysis state kept beside a session.
type AnalysisView struct {
	Status    string    `json:"status"`
	Result    *Analysis `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// CriterionView is a scored criterion as served to clients.
type CriterionView struct {
	ID                 string             `json:"id"`
	Layer              string             `json:"layer"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Examples           []string           `json:"examples,omitempty"`
	Anchors            []string           `json:"anchors,omitempty"`
	RecommendedWeights map[string]float64 `json:"recommendedWeights,omitempty"`
	Weight             float64            `json:"weight"`
	Score              int                `json:"score"`
	Evidence           string             `json:"evidence"`
	Status             string             `json:"status"`
}

// SummaryView carries the aggregate with display labels.
type SummaryView struct {
	Overall      LayerScore            `json:"overall"`
	OverallLabel string                `json:"overallLabel"`
	PerLayer     map[string]LayerScore `json:"perLayer"`
	Layers       []string              `json:"layers"`
	Missing      int                   `json:"missing"`
	Filled       int                   `json:"filled"`
}

// SessionView is the full read model of a session.
type SessionView struct {
	ID                  string          `json:"id"`
	Meta                SnapshotMeta    `json:"meta"`
	UseWeights          bool            `json:"useWeights"`
	AllowExtremeWeights bool            `json:"allowExtremeWeights"`
	WeightRange         [2]float64      `json:"weightRange"`
	WeightPreset        string          `json:"weightPreset"`
	Strengths           string          `json:"strengths"`
	FocusAreas          string          `json:"focusAreas"`
	Criteria            []CriterionView `json:"criteria"`
	Summary             SummaryView     `json:"summary"`
}
