// Package model contains the evaluation session and the scored criteria it
// owns.
package model

import (
	"fmt"
	"time"

	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/weights"
)

// DefaultRole is the role recorded on a fresh session.
const DefaultRole = "UX Designer"

// ScoredCriterion is a catalog criterion plus its per-session state.
type ScoredCriterion struct {
	catalog.Criterion
	Score    Score
	Weight   float64
	Evidence string
}

// Meta describes who is evaluated, by whom and when.
type Meta struct {
	EvaluateeName string
	Role          string
	Project       string
	Period        string
	Evaluator     string
	CoEvaluator   string
	CreatedAt     string
}

// Session is one evaluation in progress. It always contains exactly the
// criteria of its catalog, in catalog order, and every weight lies inside
// the active range. A Session is not safe for concurrent use.
type Session struct {
	ID         string
	Meta       Meta
	UseWeights bool
	Preset     string
	Strengths  string
	FocusAreas string

	extended bool
	cat      *catalog.Catalog
	criteria []ScoredCriterion
	index    map[string]int
}

// SessionOption configures a new Session.
type SessionOption func(*Session)

// WithID sets the session identifier.
func WithID(id string) SessionOption {
	return func(s *Session) { s.ID = id }
}

// WithCreatedAt stamps the creation date (YYYY-MM-DD) into Meta.
func WithCreatedAt(t time.Time) SessionOption {
	return func(s *Session) { s.Meta.CreatedAt = t.Format(time.DateOnly) }
}

// NewSession builds a session with every catalog criterion unscored at its
// default weight.
func NewSession(cat *catalog.Catalog, opts ...SessionOption) *Session {
	s := &Session{
		Meta:       Meta{Role: DefaultRole, CreatedAt: time.Now().Format(time.DateOnly)},
		UseWeights: true,
		Preset:     catalog.PresetCustom,
		cat:        cat,
	}
	s.resetCriteria()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) resetCriteria() {
	list := s.cat.Criteria()
	s.criteria = make([]ScoredCriterion, len(list))
	s.index = make(map[string]int, len(list))
	r := s.Range()
	for i, c := range list {
		s.criteria[i] = ScoredCriterion{
			Criterion: c,
			Weight:    weights.Clamp(c.DefaultWeight, r),
		}
		s.index[c.ID] = i
	}
}

// Catalog returns the catalog the session was built from.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// ExtendedWeights reports whether the extended weight range is active.
func (s *Session) ExtendedWeights() bool { return s.extended }

// Range returns the active weight range.
func (s *Session) Range() weights.Range { return weights.RangeFor(s.extended) }

// Criteria returns a copy of the scored criteria in catalog order.
func (s *Session) Criteria() []ScoredCriterion {
	return append([]ScoredCriterion(nil), s.criteria...)
}

// Criterion returns the scored criterion with the given id.
func (s *Session) Criterion(id string) (ScoredCriterion, bool) {
	i, ok := s.index[id]
	if !ok {
		return ScoredCriterion{}, false
	}
	return s.criteria[i], true
}

func (s *Session) lookup(id string) (*ScoredCriterion, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCriterion, id)
	}
	return &s.criteria[i], nil
}

// SetScore rates a criterion. Passing Unscored clears it.
func (s *Session) SetScore(id string, score Score) error {
	if score < Unscored || score > MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	c.Score = score
	return nil
}

// ClearScore returns a criterion to Unscored.
func (s *Session) ClearScore(id string) error {
	return s.SetScore(id, Unscored)
}

// SetWeight stores w clamped to the active range and returns the stored value.
func (s *Session) SetWeight(id string, w float64) (float64, error) {
	c, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	c.Weight = weights.Clamp(w, s.Range())
	return c.Weight, nil
}

// SetEvidence replaces a criterion's evidence text.
func (s *Session) SetEvidence(id, evidence string) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	c.Evidence = evidence
	return nil
}

// SetExtendedWeights switches the weight range. Narrowing to the standard
// range re-clamps every weight immediately; widening again does not restore
// the previous values.
func (s *Session) SetExtendedWeights(extended bool) {
	s.extended = extended
	r := s.Range()
	for i := range s.criteria {
		s.criteria[i].Weight = weights.Clamp(s.criteria[i].Weight, r)
	}
}

// ApplyPreset sets weights from the catalog recommendation for preset. The
// custom preset only records the name and leaves weights alone.
func (s *Session) ApplyPreset(preset string) error {
	if preset == catalog.PresetCustom {
		s.Preset = catalog.PresetCustom
		return nil
	}
	tier, ok := catalog.ParseTier(preset)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTier, preset)
	}

	next := weights.ApplyPreset(tier, s.cat, s.weightMap(), s.Range())
	for i := range s.criteria {
		s.criteria[i].Weight = next[s.criteria[i].ID]
	}
	s.Preset = string(tier)
	return nil
}

func (s *Session) weightMap() map[string]float64 {
	m := make(map[string]float64, len(s.criteria))
	for _, c := range s.criteria {
		m[c.ID] = c.Weight
	}
	return m
}

// Reset clears scores, evidence and narrative fields and sets the preset
// back to custom. Weights, policy and metadata are kept.
func (s *Session) Reset() {
	for i := range s.criteria {
		s.criteria[i].Score = Unscored
		s.criteria[i].Evidence = ""
	}
	s.Strengths = ""
	s.FocusAreas = ""
	s.Preset = catalog.PresetCustom
}

// Clone returns a copy whose mutable state is independent of s. Catalog data
// is shared read-only.
func (s *Session) Clone() *Session {
	out := *s
	out.criteria = append([]ScoredCriterion(nil), s.criteria...)
	out.index = make(map[string]int, len(s.index))
	for k, v := range s.index {
		out.index[k] = v
	}
	return &out
}
