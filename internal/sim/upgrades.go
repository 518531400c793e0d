package sim

import (
	"math"

	"github.com/clipfactory/clipfactory/internal/state"
)

// Currency ids spent by upgrade purchases.
const (
	CurMoney      = "money"
	CurOps        = "ops"
	CurCreativity = "creativity"
	CurTrust      = "trust"
	CurYomi       = "yomi"
	CurResearch   = "research"
	CurAerograde  = "aerograde"
	CurEnergy     = "energy"
	CurOre        = "ore"
)

// Purchase validates and applies one upgrade purchase. Order of checks:
// definition exists, prerequisites met, not already owned (once-only),
// balance covers the current cost. The cost of a repeatable is always
// recomputed from the live purchase count.
func (e *Engine) Purchase(category, id string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.purchaseLocked(category, id)
}

// PurchaseAt is Purchase with the caller's expected cost. The engine is
// price-authoritative: a stale client cost is rejected rather than honored.
func (e *Engine) PurchaseAt(category, id string, expectedCost float64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.catalog.Lookup(category, id)
	if u == nil {
		return fail(ErrUnknownUpgrade)
	}
	if math.Abs(u.CurrentCost(e.st.UpgradeCount(category, id))-expectedCost) > 1e-9 {
		return fail(ErrValidation)
	}
	return e.purchaseLocked(category, id)
}

func (e *Engine) purchaseLocked(category, id string) Result {
	g := e.st
	u := e.catalog.Lookup(category, id)
	if u == nil {
		return fail(ErrUnknownUpgrade)
	}
	if !u.Requires.Met(g) {
		return fail(ErrLocked)
	}
	owned := g.UpgradeCount(category, id)
	if owned > 0 && !u.Repeatable {
		return fail(ErrAlreadyOwned)
	}

	cost := u.CurrentCost(owned)
	if !e.debit(u.Currency, cost) {
		return fail(ErrInsufficient)
	}

	g.Upgrades[category] = append(g.Upgrades[category], id)
	e.applyEffect(u.Effect)

	e.logger.Info("upgrade purchased",
		"category", category, "id", id, "cost", cost, "currency", u.Currency)
	return spent(cost, u.Currency)
}

// debit deducts amount from the named currency balance, reporting whether
// the balance covered it. Never drives a balance negative.
func (e *Engine) debit(currency string, amount float64) bool {
	g := e.st
	var bal *float64
	switch currency {
	case CurMoney:
		bal = &g.Money
	case CurOps:
		bal = &g.Ops
	case CurCreativity:
		bal = &g.Creativity
	case CurTrust:
		bal = &g.Trust
	case CurYomi:
		bal = &g.Yomi
	case CurResearch:
		bal = &g.ResearchPoints
	case CurAerograde:
		bal = &g.Aerograde
	case CurEnergy:
		bal = &g.Energy
	case CurOre:
		bal = &g.Ore
	default:
		return false
	}
	if *bal < amount {
		return false
	}
	*bal -= amount
	return true
}

// applyEffect dispatches the tagged effect variant onto the state record.
func (e *Engine) applyEffect(eff Effect) {
	g := e.st
	switch eff.Kind {
	case EffectMultiply:
		if f := e.floatField(eff.Field); f != nil {
			*f *= eff.Value
		}
	case EffectAdd:
		switch eff.Field {
		case "cpu_level":
			g.CPULevel += int64(eff.Value)
		default:
			if f := e.floatField(eff.Field); f != nil {
				*f += eff.Value
			}
		}
	case EffectFlag:
		switch eff.Field {
		case "mega_clippers_unlocked":
			g.MegaClippersUnlocked = true
		case "auto_sell":
			g.AutoSell = true
		case "auto_battle":
			g.AutoBattle = true
		case "auto_wire_buyer":
			g.AutoWireBuyer = true
		default:
			e.logger.Warn("unknown flag field", "field", eff.Field)
		}
	default:
		e.logger.Warn("unknown effect kind", "kind", eff.Kind)
	}
}

func (e *Engine) floatField(name string) *float64 {
	g := e.st
	switch name {
	case "production_multiplier":
		return &g.ProductionMultiplier
	case "click_multiplier":
		return &g.ClickMultiplier
	case "research_rate":
		return &g.ResearchRate
	case "memory_max":
		return &g.MemoryMax
	case "memory_regen_rate":
		return &g.MemoryRegenRate
	case "ops_max":
		return &g.OpsMax
	case "creativity_rate":
		return &g.CreativityRate
	case "yomi_rate":
		return &g.YomiRate
	case "demand_boost":
		return &g.DemandBoost
	case "seasonal_multiplier":
		return &g.SeasonalMultiplier
	case "wire_spool_size":
		return &g.WireSpoolSize
	case "trust":
		return &g.Trust
	case "energy_per_second":
		return &g.EnergyPerSecond
	default:
		e.logger.Warn("unknown effect field", "field", name)
		return nil
	}
}

// BuyResearch unlocks a research id once and applies its permanent effect.
func (e *Engine) BuyResearch(id string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	u := e.catalog.Lookup(state.CatResearch, id)
	if u == nil {
		return fail(ErrUnknownUpgrade)
	}
	if g.HasResearch(id) {
		return fail(ErrAlreadyOwned)
	}
	if !u.Requires.Met(g) {
		return fail(ErrLocked)
	}
	if !e.debit(CurResearch, u.Cost) {
		return fail(ErrInsufficient)
	}
	g.UnlockedResearch = append(g.UnlockedResearch, id)
	e.applyEffect(u.Effect)
	return spent(u.Cost, CurResearch)
}
