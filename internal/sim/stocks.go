package sim

import (
	"math"

	"github.com/clipfactory/clipfactory/internal/state"
	"github.com/clipfactory/clipfactory/internal/stocks"
)

// UnlockStockMarket opens the exchange and seeds the board from the stock
// catalog. Once-only.
func (e *Engine) UnlockStockMarket() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.StockMarketUnlocked {
		return fail(ErrAlreadyOwned)
	}
	if g.Money < StockMarketUnlockMoney {
		return fail(ErrInsufficient)
	}
	listings, err := stocks.NewListings()
	if err != nil {
		e.logger.Error("stock catalog", "err", err)
		return fail(ErrValidation)
	}
	g.Money -= StockMarketUnlockMoney
	g.StockMarketUnlocked = true
	g.Stocks = listings
	return spent(StockMarketUnlockMoney, CurMoney)
}

// StockMarketTick advances stock prices one step and lets the bots trade.
// Runs on its own slower cadence than the main tick.
func (e *Engine) StockMarketTick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.StockMarketUnlocked {
		return
	}
	stocks.UpdatePrices(g, e.rng)
	stocks.RunBots(g, e.rng)
}

// BuyStock buys qty shares at the current price, maintaining a
// weighted-average cost basis.
func (e *Engine) BuyStock(id string, qty int64) Result {
	if qty <= 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.StockMarketUnlocked {
		return fail(ErrLocked)
	}
	s := g.Stock(id)
	if s == nil {
		return fail(ErrUnknownUpgrade)
	}
	cost := float64(qty) * s.Price
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost

	if h := g.Holding(id); h != nil {
		totalCost := h.AvgCost*float64(h.Quantity) + cost
		h.Quantity += qty
		h.AvgCost = totalCost / float64(h.Quantity)
	} else {
		g.Holdings = append(g.Holdings, state.Holding{StockID: id, Quantity: qty, AvgCost: s.Price})
	}
	return spent(cost, CurMoney)
}

// SellStock sells qty shares at the current price and realizes the P/L
// against the average cost basis.
func (e *Engine) SellStock(id string, qty int64) Result {
	if qty <= 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	s := g.Stock(id)
	if s == nil {
		return fail(ErrUnknownUpgrade)
	}
	h := g.Holding(id)
	if h == nil || h.Quantity < qty {
		return fail(ErrInsufficient)
	}

	proceeds := float64(qty) * s.Price
	g.Money += proceeds
	g.RealizedProfit += proceeds - float64(qty)*h.AvgCost

	h.Quantity -= qty
	if h.Quantity == 0 {
		for i := range g.Holdings {
			if g.Holdings[i].StockID == id {
				g.Holdings = append(g.Holdings[:i], g.Holdings[i+1:]...)
				break
			}
		}
	}
	return gained(proceeds, CurMoney)
}

// PortfolioValue is the mark-to-market value of the player's holdings.
func (e *Engine) PortfolioValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return stocks.PortfolioValue(e.st)
}

// BuyTradingBot adds one autonomous trading bot.
func (e *Engine) BuyTradingBot() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.StockMarketUnlocked {
		return fail(ErrLocked)
	}
	cost := TradingBotCost(g.TradingBots)
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost
	g.TradingBots++
	return spent(cost, CurMoney)
}

// UpgradeBotIntelligence raises the shared bot intelligence level.
func (e *Engine) UpgradeBotIntelligence() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.StockMarketUnlocked {
		return fail(ErrLocked)
	}
	cost := BotIntelligenceCost(g.BotIntelligence)
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost
	g.BotIntelligence++
	return spent(cost, CurMoney)
}

// SetBotTradingBudget moves money so the allocated bot budget equals
// target. Growing the budget requires the difference in cash; shrinking it
// returns the difference.
func (e *Engine) SetBotTradingBudget(target float64) Result {
	if math.IsNaN(target) || math.IsInf(target, 0) || target < 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	diff := target - g.BotTradingBudget
	if diff > 0 && g.Money < diff {
		return fail(ErrInsufficient)
	}
	g.Money -= diff
	g.BotTradingBudget = target
	return ok()
}

// WithdrawBotTradingBudget returns part of the bot budget to cash.
func (e *Engine) WithdrawBotTradingBudget(amount float64) Result {
	if math.IsNaN(amount) || amount <= 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.BotTradingBudget < amount {
		return fail(ErrInsufficient)
	}
	g.BotTradingBudget -= amount
	g.Money += amount
	return ok()
}

// SetBotRiskThreshold bounds how large a deviation triggers a bot trade.
// Valid range (0, 1].
func (e *Engine) SetBotRiskThreshold(t float64) Result {
	if math.IsNaN(t) || t <= 0 || t > 1 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.BotRiskThreshold = t
	return ok()
}
