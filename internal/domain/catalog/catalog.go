// Package catalog defines the immutable set of evaluation criteria.
//
// A Catalog is the authority on which criteria exist: sessions are built from
// it and imports are reconciled against it. Accessors hand out copies so the
// catalog cannot be mutated after construction.
package catalog

import (
	"fmt"
	"strings"
)

// Tier names a seniority level used to pick recommended weights.
type Tier string

// Known seniority tiers.
const (
	TierJunior Tier = "junior"
	TierMid    Tier = "mid"
	TierSenior Tier = "senior"
)

// PresetCustom is the preset name meaning "no preset applied".
const PresetCustom = "custom"

// Tiers returns the known tiers in ascending seniority.
func Tiers() []Tier {
	return []Tier{TierJunior, TierMid, TierSenior}
}

// ParseTier resolves a tier name case-insensitively.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierJunior:
		return TierJunior, true
	case TierMid:
		return TierMid, true
	case TierSenior:
		return TierSenior, true
	default:
		return "", false
	}
}

// Criterion is one fixed evaluation dimension.
type Criterion struct {
	ID                 string           `koanf:"id" json:"id"`
	Layer              string           `koanf:"layer" json:"layer"`
	Name               string           `koanf:"name" json:"name"`
	Description        string           `koanf:"description" json:"description"`
	Examples           []string         `koanf:"examples" json:"examples,omitempty"`
	Anchors            []string         `koanf:"anchors" json:"anchors,omitempty"`
	RecommendedWeights map[Tier]float64 `koanf:"recommended_weights" json:"recommendedWeights,omitempty"`
	DefaultWeight      float64          `koanf:"default_weight" json:"defaultWeight"`
}

// Recommended returns the recommended weight for tier, if one is declared.
func (c Criterion) Recommended(tier Tier) (float64, bool) {
	w, ok := c.RecommendedWeights[tier]
	return w, ok
}

func (c Criterion) clone() Criterion {
	out := c
	out.Examples = append([]string(nil), c.Examples...)
	out.Anchors = append([]string(nil), c.Anchors...)
	if c.RecommendedWeights != nil {
		out.RecommendedWeights = make(map[Tier]float64, len(c.RecommendedWeights))
		for k, v := range c.RecommendedWeights {
			out.RecommendedWeights[k] = v
		}
	}
	return out
}

// Catalog is an ordered, id-indexed, immutable list of criteria.
type Catalog struct {
	criteria []Criterion
	index    map[string]int
	layers   []string
}

// New validates criteria and builds a Catalog. Order is preserved; layers are
// derived in order of first appearance.
func New(criteria []Criterion) (*Catalog, error) {
	if len(criteria) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		criteria: make([]Criterion, 0, len(criteria)),
		index:    make(map[string]int, len(criteria)),
	}
	seenLayer := make(map[string]bool)

	for i, cr := range criteria {
		cr.ID = strings.TrimSpace(cr.ID)
		cr.Layer = strings.TrimSpace(cr.Layer)
		if cr.ID == "" {
			return nil, fmt.Errorf("criterion #%d: %w", i, ErrEmptyID)
		}
		if cr.Layer == "" {
			return nil, fmt.Errorf("criterion %q: %w", cr.ID, ErrEmptyLayer)
		}
		if _, dup := c.index[cr.ID]; dup {
			return nil, fmt.Errorf("criterion %q: %w", cr.ID, ErrDuplicateID)
		}
		c.index[cr.ID] = len(c.criteria)
		c.criteria = append(c.criteria, cr.clone())
		if !seenLayer[cr.Layer] {
			seenLayer[cr.Layer] = true
			c.layers = append(c.layers, cr.Layer)
		}
	}

	return c, nil
}

// MustNew is New for statically known catalogs.
func MustNew(criteria []Criterion) *Catalog {
	c, err := New(criteria)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of criteria.
func (c *Catalog) Len() int { return len(c.criteria) }

// Criteria returns a copy of all criteria in catalog order.
func (c *Catalog) Criteria() []Criterion {
	out := make([]Criterion, len(c.criteria))
	for i, cr := range c.criteria {
		out[i] = cr.clone()
	}
	return out
}

// Lookup returns the criterion with the given id.
func (c *Catalog) Lookup(id string) (Criterion, bool) {
	i, ok := c.index[id]
	if !ok {
		return Criterion{}, false
	}
	return c.criteria[i].clone(), true
}

// Contains reports whether id is part of the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Layers returns layer names in order of first appearance.
func (c *Catalog) Layers() []string {
	return append([]string(nil), c.layers...)
}
