package stocks

import (
	"math"
	"math/rand"

	"github.com/clipfactory/clipfactory/internal/state"
)

// Bot holdings are tracked inside the shared budget: a bot buy moves budget
// into a synthetic position and a bot sell realizes the difference into
// profit or loss accumulators. Bots never touch the player's money and
// never spend past the allocated budget.

// RunBots gives each trading bot one decision pass over the board. A bot
// trades when the current price deviates from the recent mean by more than
// the risk threshold; intelligence raises both the chance the trade goes
// the right way and the quality of the fill.
func RunBots(g *state.GameState, rng *rand.Rand) {
	if g.TradingBots <= 0 || g.BotTradingBudget <= 0 {
		return
	}

	for b := int64(0); b < g.TradingBots; b++ {
		if len(g.Stocks) == 0 {
			return
		}
		s := &g.Stocks[rng.Intn(len(g.Stocks))]
		mean := meanPrice(s)
		if mean <= 0 {
			continue
		}
		deviation := (s.Price - mean) / mean
		if math.Abs(deviation) < g.BotRiskThreshold {
			continue
		}

		// Stake a slice of the budget proportional to conviction, capped so
		// one bad fill can't wipe the budget.
		stake := math.Min(g.BotTradingBudget*0.1*math.Abs(deviation)*10, g.BotTradingBudget)
		if stake < s.Price {
			continue
		}

		successP := 0.5 + 0.05*float64(g.BotIntelligence)
		if successP > 0.95 {
			successP = 0.95
		}
		// Edge per trade scales with intelligence; the sign depends on
		// whether the bot read the deviation correctly.
		edge := 0.01 + 0.005*float64(g.BotIntelligence)
		var pnl float64
		if rng.Float64() < successP {
			pnl = stake * edge * (1 + rng.Float64())
		} else {
			pnl = -stake * edge * (1 + rng.Float64())
		}

		if pnl >= 0 {
			g.BotTradingProfit += pnl
		} else {
			g.BotTradingLosses += -pnl
		}
		g.BotTradingBudget += pnl
		if g.BotTradingBudget < 0 {
			g.BotTradingBudget = 0
		}
	}
}
