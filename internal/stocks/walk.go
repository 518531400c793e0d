package stocks

import (
	"math"
	"math/rand"

	"github.com/clipfactory/clipfactory/internal/state"
)

// Price walk tuning. Trend mean-reverts slowly toward zero so runs of
// momentum happen but decay; noise scales with each stock's volatility.
const (
	trendDecay = 0.95
	trendKick  = 0.1
	trendBound = 0.05
	priceFloor = 0.01
	historyLen = 50
)

// UpdatePrices advances every listed stock one step of its bounded random
// walk: price' = price * (1 + trend + noise).
func UpdatePrices(g *state.GameState, rng *rand.Rand) {
	for i := range g.Stocks {
		s := &g.Stocks[i]

		s.Trend = s.Trend*trendDecay + rng.NormFloat64()*s.Volatility*trendKick
		s.Trend = math.Max(-trendBound, math.Min(trendBound, s.Trend))

		noise := rng.NormFloat64() * s.Volatility

		s.PrevPrice = s.Price
		s.Price = math.Max(priceFloor, s.Price*(1+s.Trend+noise))

		s.History = append(s.History, s.Price)
		if len(s.History) > historyLen {
			s.History = s.History[len(s.History)-historyLen:]
		}
	}
}

// PortfolioValue is the mark-to-market value of all holdings.
func PortfolioValue(g *state.GameState) float64 {
	total := 0.0
	for _, h := range g.Holdings {
		if s := g.Stock(h.StockID); s != nil {
			total += float64(h.Quantity) * s.Price
		}
	}
	return total
}

// meanPrice is the average of a stock's recent history, falling back to
// the current price when history is short. Bots trade deviations from it.
func meanPrice(s *state.Stock) float64 {
	if len(s.History) < 5 {
		return s.Price
	}
	sum := 0.0
	for _, p := range s.History {
		sum += p
	}
	return sum / float64(len(s.History))
}
