package stocks

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clipfactory/clipfactory/internal/state"
)

//go:embed catalog.yaml
var catalogYAML []byte

type listing struct {
	ID         string  `yaml:"id"`
	Symbol     string  `yaml:"symbol"`
	Name       string  `yaml:"name"`
	BasePrice  float64 `yaml:"base_price"`
	Volatility float64 `yaml:"volatility"`
}

type catalog struct {
	Listings []listing `yaml:"listings"`
}

// NewListings returns the initial stock board from the embedded catalog.
func NewListings() ([]state.Stock, error) {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse stock catalog: %w", err)
	}
	out := make([]state.Stock, 0, len(c.Listings))
	for _, l := range c.Listings {
		out = append(out, state.Stock{
			ID:         l.ID,
			Symbol:     l.Symbol,
			Name:       l.Name,
			Price:      l.BasePrice,
			PrevPrice:  l.BasePrice,
			Volatility: l.Volatility,
		})
	}
	return out, nil
}
