package sim

import (
	"math"

	"github.com/clipfactory/clipfactory/internal/state"
)

// SetClipPrice sets the player's asking price. Valid range is (0, 1].
func (e *Engine) SetClipPrice(price float64) Result {
	if math.IsNaN(price) || price <= 0 || price > 1 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.PaperclipPrice = price
	return ok()
}

// MarketTick advances the demand trend walk, recomputes demand from the
// current price, and sells into it.
func (e *Engine) MarketTick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	g.MarketTrend = NextTrend(g.MarketTrend, e.rng.NormFloat64())
	g.MarketDemand = Demand(g.PaperclipPrice, g.MarketTrend, g.SeasonalMultiplier, g.DemandBoost)

	sold := math.Min(g.MarketDemand*dt, g.Paperclips)
	if sold <= 0 {
		e.spaceMarketLocked(dt)
		return
	}
	g.Paperclips -= sold
	g.PaperclipsSold += sold
	revenue := sold * g.PaperclipPrice
	g.Money += revenue
	g.TotalSales += revenue

	e.spaceMarketLocked(dt)
}

// spaceMarketLocked runs the per-resource space markets: each has its own
// mean-reverting trend and demand, and the auto-sell mode liquidates a
// fixed fraction of each stockpile into that demand.
func (e *Engine) spaceMarketLocked(dt float64) {
	g := e.st
	if !g.SpaceAgeUnlocked {
		return
	}

	for key, m := range g.SpaceMarkets {
		m.Trend = NextTrend(m.Trend, e.rng.NormFloat64())
		base := state.DefaultSpaceMarkets()[key]
		m.Demand = clamp(base.Demand*m.Trend, 0, base.Demand*4)

		// Price tracks the trend, pulled toward base*trend so a long bull
		// run cannot inflate it without bound.
		k := math.Min(spaceMarketReversion*dt, 1)
		m.Price += (base.Price*m.Trend - m.Price) * k

		if !g.AutoSell {
			continue
		}
		stock := e.spaceStockpile(key)
		if stock == nil || *stock <= 0 {
			continue
		}
		amount := math.Min(*stock*g.AutoSellFraction*dt, m.Demand*dt)
		if amount <= 0 {
			continue
		}
		*stock -= amount
		revenue := amount * m.Price
		g.Money += revenue
		g.TotalSales += revenue
	}
}

func (e *Engine) spaceStockpile(resource string) *float64 {
	g := e.st
	switch resource {
	case state.ResPaperclips:
		return &g.Paperclips
	case state.ResAerograde:
		return &g.Aerograde
	case state.ResOre:
		return &g.Ore
	case state.ResWire:
		return &g.Wire
	default:
		return nil
	}
}

// nextWirePrice drifts the spool price upward with purchases plus a small
// random wobble, floored at half the base price.
func nextWirePrice(current float64, spoolsPurchased int64, roll float64) float64 {
	next := current + 0.05*float64(spoolsPurchased) + (roll-0.45)*2
	return math.Max(10, next)
}
