package sim

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clipfactory/clipfactory/internal/state"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Effect kinds. An upgrade's effect is a tagged variant applied through
// applyEffect, never bespoke per-upgrade code.
const (
	EffectMultiply = "multiply"
	EffectAdd      = "add"
	EffectFlag     = "flag"
)

type Effect struct {
	Kind  string  `yaml:"kind"`
	Field string  `yaml:"field"`
	Value float64 `yaml:"value"`
}

// Requirement gates a purchase on resource thresholds. Zero values mean no
// gate. Checks happen at purchase time only.
type Requirement struct {
	Ops      float64 `yaml:"ops"`
	OpsMax   float64 `yaml:"ops_max"`
	Trust    float64 `yaml:"trust"`
	Probes   int64   `yaml:"probes"`
	Research string  `yaml:"research"`
	SpaceAge bool    `yaml:"space_age"`
}

type Upgrade struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Currency   string      `yaml:"currency"`
	Cost       float64     `yaml:"cost"`
	CostMult   float64     `yaml:"cost_mult"` // only meaningful when repeatable
	Repeatable bool        `yaml:"repeatable"`
	Requires   Requirement `yaml:"requires"`
	Effect     Effect      `yaml:"effect"`
}

// CurrentCost returns the price of the next purchase given how many times
// the upgrade has already been bought. Once-only upgrades always cost the
// base price.
func (u *Upgrade) CurrentCost(owned int) float64 {
	if !u.Repeatable || owned == 0 {
		return u.Cost
	}
	return GeometricCost(u.Cost, u.CostMult, int64(owned))
}

// Catalog is the static upgrade-definition table, one list per category.
// It is the single source of truth for costs and effects; ledgers persist
// only ids.
type Catalog struct {
	Categories map[string][]Upgrade `yaml:"categories"`
	index      map[string]map[string]*Upgrade
}

// LoadCatalog parses the embedded definition table.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.index = make(map[string]map[string]*Upgrade, len(c.Categories))
	for cat := range c.Categories {
		byID := make(map[string]*Upgrade, len(c.Categories[cat]))
		for i := range c.Categories[cat] {
			u := &c.Categories[cat][i]
			if u.Repeatable && u.CostMult <= 1 {
				return nil, fmt.Errorf("catalog: repeatable %s/%s needs cost_mult > 1", cat, u.ID)
			}
			byID[u.ID] = u
		}
		c.index[cat] = byID
	}
	return &c, nil
}

// MustLoadCatalog is for wiring paths where a broken embedded catalog is a
// programming error.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for category/id, or nil.
func (c *Catalog) Lookup(category, id string) *Upgrade {
	return c.index[category][id]
}

// Met reports whether the state satisfies a purchase requirement.
func (r Requirement) Met(g *state.GameState) bool {
	if g.Ops < r.Ops || g.OpsMax < r.OpsMax || g.Trust < r.Trust {
		return false
	}
	if g.Probes < r.Probes {
		return false
	}
	if r.SpaceAge && !g.SpaceAgeUnlocked {
		return false
	}
	if r.Research != "" && !g.HasResearch(r.Research) {
		return false
	}
	return true
}
