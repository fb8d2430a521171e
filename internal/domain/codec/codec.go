// Package codec converts evaluation sessions to and from the exchanged
// snapshot document.
//
// Export is a pure projection that always recomputes the aggregate. Import
// validates the envelope strictly and then merges field by field against the
// catalog, substituting defaults for malformed values instead of failing.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/scoring"
	"github.com/okian/evalmatrix/internal/domain/types"
)

// DefaultVersion tags documents when no build version is configured.
const DefaultVersion = "v0.0.0+dev"

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Codec exports and imports sessions for one catalog.
type Codec struct {
	cat     *catalog.Catalog
	version string
	now     func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithVersion sets the version tag written into exported documents.
func WithVersion(v string) Option {
	return func(c *Codec) {
		if v != "" {
			c.version = v
		}
	}
}

// WithClock overrides the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Codec bound to cat.
func New(cat *catalog.Catalog, opts ...Option) *Codec {
	c := &Codec{cat: cat, version: DefaultVersion, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the tag written into exports.
func (c *Codec) Version() string { return c.version }

// ImportStats describes how lenient an import had to be.
type ImportStats struct {
	// Matched counts catalog criteria found in the document.
	Matched int
	// Dropped counts document entries with no catalog counterpart.
	Dropped int
	// Coerced counts present fields replaced by a default.
	Coerced int
}

// ToSnapshot projects s into the exchanged document shape.
func (c *Codec) ToSnapshot(s *model.Session) types.Snapshot {
	agg := scoring.ComputeSession(s)

	perLayer := make(map[string]types.LayerScore, len(agg.PerLayer))
	for name, sc := range agg.PerLayer {
		perLayer[name] = types.LayerScore{Count: sc.Count, Score: sc.Score}
	}

	list := s.Criteria()
	criteria := make([]types.SnapshotCriterion, len(list))
	for i, cr := range list {
		criteria[i] = types.SnapshotCriterion{
			ID:          cr.ID,
			Layer:       cr.Layer,
			Name:        cr.Name,
			Description: cr.Description,
			Weight:      cr.Weight,
			Score:       int(cr.Score),
			Evidence:    cr.Evidence,
		}
	}

	return types.Snapshot{
		Meta:                MetaToWire(s.Meta),
		UseWeights:          s.UseWeights,
		AllowExtremeWeights: s.ExtendedWeights(),
		WeightPreset:        s.Preset,
		Strengths:           s.Strengths,
		FocusAreas:          s.FocusAreas,
		Criteria:            criteria,
		Computed: types.Computed{
			Overall:      agg.Overall.Score,
			PerLayer:     perLayer,
			CreatedAtISO: c.now().UTC().Format(isoMillis),
		},
		Version: c.version,
	}
}

// Marshal encodes the snapshot of s as indented JSON.
func (c *Codec) Marshal(s *model.Session) ([]byte, error) {
	return json.MarshalIndent(c.ToSnapshot(s), "", "  ")
}

// MetaToWire converts session metadata to its document form.
func MetaToWire(m model.Meta) types.SnapshotMeta {
	return types.SnapshotMeta{
		EvaluateeName: m.EvaluateeName,
		Role:          m.Role,
		Project:       m.Project,
		Period:        m.Period,
		Evaluator:     m.Evaluator,
		CoEvaluator:   m.CoEvaluator,
		CreatedAt:     m.CreatedAt,
	}
}

// Validate checks only the document envelope.
func Validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: not valid JSON", ErrMalformedDocument)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := snapshotSchema.Validate(inst); err != nil {
		return fmt.Errorf("%w: requires a meta object and a criteria list: %v", ErrMalformedDocument, err)
	}
	return nil
}

// FromSnapshot merges the document in data onto base and returns the result
// as a new session. base is never modified; nil means a fresh session.
//
// The catalog decides which criteria exist. Criteria absent from the
// document keep their live score, weight and evidence from base, and
// document entries unknown to the catalog are dropped. Policy, flags and
// narrative always come from the document. Every weight, imported or kept,
// is clamped to the range the document declares, which then becomes the
// session's range.
func (c *Codec) FromSnapshot(data []byte, base *model.Session) (*model.Session, ImportStats, error) {
	var stats ImportStats
	if err := Validate(data); err != nil {
		return nil, stats, err
	}
	doc := gjson.ParseBytes(data)

	var next *model.Session
	if base != nil && base.Catalog() == c.cat {
		next = base.Clone()
	} else {
		next = model.NewSession(c.cat)
		if base != nil {
			next.ID = base.ID
			next.Meta = base.Meta
		}
	}

	stats.Coerced += mergeMeta(&next.Meta, doc.Get("meta"))

	next.SetExtendedWeights(truthy(doc.Get("allowExtremeWeights")))
	next.UseWeights = truthy(doc.Get("useWeights"))

	next.Preset = catalog.PresetCustom
	if p := doc.Get("weightPreset"); p.Type == gjson.String && p.Str != "" {
		next.Preset = p.Str
	}
	next.Strengths = stringOrEmpty(doc.Get("strengths"), &stats)
	next.FocusAreas = stringOrEmpty(doc.Get("focusAreas"), &stats)

	hits := make(map[string]gjson.Result)
	for _, entry := range doc.Get("criteria").Array() {
		id := entry.Get("id")
		if !entry.IsObject() || id.Type != gjson.String || !c.cat.Contains(id.Str) {
			stats.Dropped++
			continue
		}
		if _, dup := hits[id.Str]; dup {
			continue
		}
		hits[id.Str] = entry
	}

	for _, cr := range c.cat.Criteria() {
		hit, ok := hits[cr.ID]
		if !ok {
			continue
		}
		stats.Matched++
		if err := applyEntry(next, cr, hit, &stats); err != nil {
			return nil, stats, err
		}
	}

	return next, stats, nil
}

func applyEntry(s *model.Session, cr catalog.Criterion, hit gjson.Result, stats *ImportStats) error {
	score := model.Unscored
	if r := hit.Get("score"); r.Exists() {
		if v, ok := integerScore(r); ok {
			score = v
		} else {
			stats.Coerced++
		}
	}
	if err := s.SetScore(cr.ID, score); err != nil {
		return err
	}

	w := cr.DefaultWeight
	if r := hit.Get("weight"); r.Exists() {
		if r.Type == gjson.Number && !math.IsNaN(r.Num) && !math.IsInf(r.Num, 0) {
			w = r.Num
		} else {
			stats.Coerced++
		}
	}
	if _, err := s.SetWeight(cr.ID, w); err != nil {
		return err
	}

	return s.SetEvidence(cr.ID, stringOrEmpty(hit.Get("evidence"), stats))
}

func integerScore(r gjson.Result) (model.Score, bool) {
	if r.Type != gjson.Number || r.Num != math.Trunc(r.Num) {
		return model.Unscored, false
	}
	if r.Num < float64(model.Unscored) || r.Num > float64(model.MaxScore) {
		return model.Unscored, false
	}
	return model.Score(int(r.Num)), true
}

func stringOrEmpty(r gjson.Result, stats *ImportStats) string {
	switch {
	case r.Type == gjson.String:
		return r.Str
	case r.Exists() && r.Type != gjson.Null:
		stats.Coerced++
	}
	return ""
}

// truthy follows loose boolean semantics: non-zero numbers, non-empty
// strings, objects and arrays are true.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0 && !math.IsNaN(r.Num)
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}

// mergeMeta overwrites known keys present in m. Scalars are stringified,
// null clears and nested values keep the prior value.
func mergeMeta(dst *model.Meta, m gjson.Result) int {
	coerced := 0
	fields := map[string]*string{
		"evaluateeName": &dst.EvaluateeName,
		"role":          &dst.Role,
		"project":       &dst.Project,
		"period":        &dst.Period,
		"evaluator":     &dst.Evaluator,
		"coEvaluator":   &dst.CoEvaluator,
		"createdAt":     &dst.CreatedAt,
	}
	for key, ptr := range fields {
		r := m.Get(key)
		switch r.Type {
		case gjson.String:
			*ptr = r.Str
		case gjson.Null:
			if r.Exists() {
				*ptr = ""
			}
		case gjson.Number, gjson.True, gjson.False:
			*ptr = r.String()
			coerced++
		case gjson.JSON:
			coerced++
		}
	}
	return coerced
}
