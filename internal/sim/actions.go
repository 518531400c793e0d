package sim

import (
	"fmt"
	"math"

	"github.com/clipfactory/clipfactory/internal/state"
)

// ClickPaperclip mints clips for one manual click, instantaneous and
// wire-clamped like automated production.
func (e *Engine) ClickPaperclip() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	made := e.produceClipsLocked(e.st.ClickMultiplier * e.st.Rewards.ClickBonus)
	if made <= 0 {
		return fail(ErrInsufficient) // out of wire
	}
	return ok()
}

func (e *Engine) BuyAutoClipper() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	cost := AutoClipperCost(g.AutoClippers)
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost
	g.AutoClippers++
	return spent(cost, CurMoney)
}

func (e *Engine) BuyMegaClipper() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.MegaClippersUnlocked {
		return fail(ErrLocked)
	}
	cost := MegaClipperCost(g.MegaClippers)
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost
	g.MegaClippers++
	return spent(cost, CurMoney)
}

// BuyWireSpool purchases one spool of wire at the drifting spool price.
func (e *Engine) BuyWireSpool() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.Money < g.WirePrice {
		return fail(ErrInsufficient)
	}
	cost := g.WirePrice
	g.Money -= cost
	g.Wire += g.WireSpoolSize
	g.SpoolsPurchased++
	g.WirePrice = nextWirePrice(g.WirePrice, g.SpoolsPurchased, e.rng.Float64())
	return spent(cost, CurMoney)
}

// UpgradeSpoolSize doubles the wire delivered per spool.
func (e *Engine) UpgradeSpoolSize() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	cost := GeometricCost(200, 2, g.SpoolSizeLevel)
	if g.Money < cost {
		return fail(ErrInsufficient)
	}
	g.Money -= cost
	g.SpoolSizeLevel++
	g.WireSpoolSize *= 2
	return spent(cost, CurMoney)
}

const autoWireBuyerCost = 7000.0

// BuyAutoWireBuyer enables automatic spool restocking. Once-only.
func (e *Engine) BuyAutoWireBuyer() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.AutoWireBuyer {
		return fail(ErrAlreadyOwned)
	}
	if g.Money < autoWireBuyerCost {
		return fail(ErrInsufficient)
	}
	g.Money -= autoWireBuyerCost
	g.AutoWireBuyer = true
	return spent(autoWireBuyerCost, CurMoney)
}

// UnlockSpaceAge opens the Space Age subsystem. Gated on trust and ops.
func (e *Engine) UnlockSpaceAge() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.SpaceAgeUnlocked {
		return fail(ErrAlreadyOwned)
	}
	if g.Trust < SpaceAgeUnlockTrust || g.Ops < SpaceAgeUnlockOps {
		return fail(ErrLocked)
	}
	g.SpaceAgeUnlocked = true
	e.logger.Info("space age unlocked")
	return ok()
}

// UnlockCombat opens the combat stat. Gated on an ops threshold; the
// threshold is a gate, not a spend.
func (e *Engine) UnlockCombat() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.CombatUnlocked {
		return fail(ErrAlreadyOwned)
	}
	if !g.SpaceAgeUnlocked || g.Ops < CombatUnlockOps {
		return fail(ErrLocked)
	}
	g.CombatUnlocked = true
	return ok()
}

// UpgradeStat raises one space stat by a level, spending yomi. The engine
// recomputes the authoritative cost from the current level; a stale client
// cost is rejected.
func (e *Engine) UpgradeStat(statID string, expectedCost float64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.SpaceAgeUnlocked {
		return fail(ErrLocked)
	}
	level := e.statLevel(statID)
	if level == nil {
		return fail(ErrUnknownUpgrade)
	}
	if statID == "combat" && !g.CombatUnlocked {
		return fail(ErrLocked)
	}
	cost := StatUpgradeCost(*level)
	if math.Abs(cost-expectedCost) > 1e-9 {
		return fail(ErrValidation)
	}
	if g.Yomi < cost {
		return fail(ErrInsufficient)
	}
	g.Yomi -= cost
	*level++
	return spent(cost, CurYomi)
}

func (e *Engine) statLevel(statID string) *int64 {
	st := &e.st.Stats
	switch statID {
	case "speed":
		return &st.Speed
	case "exploration":
		return &st.Exploration
	case "self_replication":
		return &st.SelfReplication
	case "wire_production":
		return &st.WireProduction
	case "mining_production":
		return &st.MiningProduction
	case "factory_production":
		return &st.FactoryProduction
	case "hazard_evasion":
		return &st.HazardEvasion
	case "combat":
		return &st.Combat
	default:
		return nil
	}
}

// MakeProbe builds one combat/exploration probe from aerograde clips.
func (e *Engine) MakeProbe() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.SpaceAgeUnlocked {
		return fail(ErrLocked)
	}
	if g.Aerograde < probeCost {
		return fail(ErrInsufficient)
	}
	g.Aerograde -= probeCost
	g.Probes++
	return spent(probeCost, CurAerograde)
}

func (e *Engine) LaunchWireHarvester(count int64) Result {
	return e.launchDrones(count, func(g *state.GameState) *int64 { return &g.WireHarvesters })
}

func (e *Engine) LaunchOreHarvester(count int64) Result {
	return e.launchDrones(count, func(g *state.GameState) *int64 { return &g.OreHarvesters })
}

// launchDrones buys count harvesters with money on a geometric curve over
// the combined harvester fleet.
func (e *Engine) launchDrones(count int64, field func(*state.GameState) *int64) Result {
	if count <= 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.SpaceAgeUnlocked {
		return fail(ErrLocked)
	}
	var total float64
	fleet := g.WireHarvesters + g.OreHarvesters
	for i := int64(0); i < count; i++ {
		total += GeometricCost(harvesterBaseCost, harvesterCostMult, fleet+i)
	}
	if g.Money < total {
		return fail(ErrInsufficient)
	}
	g.Money -= total
	*field(g) += count
	return spent(total, CurMoney)
}

// BuildFactory buys count factories with ore on a geometric curve.
func (e *Engine) BuildFactory(count int64) Result {
	if count <= 0 {
		return fail(ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.SpaceAgeUnlocked {
		return fail(ErrLocked)
	}
	var total float64
	for i := int64(0); i < count; i++ {
		total += GeometricCost(factoryCost, factoryCostMult, g.Factories+i)
	}
	if g.Ore < total {
		return fail(ErrInsufficient)
	}
	g.Ore -= total
	g.Factories += count
	return spent(total, CurOre)
}

func (e *Engine) ToggleDroneReplication() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.st.SpaceAgeUnlocked {
		return fail(ErrLocked)
	}
	e.st.DroneReplication = !e.st.DroneReplication
	return ok()
}

// ToggleAutoSell flips the space-market auto-sell mode. Requires the
// auto-sell protocol upgrade.
func (e *Engine) ToggleAutoSell() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.st.HasUpgrade(state.CatSpace, "auto_sell_protocol") {
		return fail(ErrLocked)
	}
	e.st.AutoSell = !e.st.AutoSell
	return ok()
}

// ToggleAutoBattle flips auto-battle. Requires the auto-battle protocol
// upgrade.
func (e *Engine) ToggleAutoBattle() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.st.HasUpgrade(state.CatSpace, "auto_battle_protocol") {
		return fail(ErrLocked)
	}
	e.st.AutoBattle = !e.st.AutoBattle
	return ok()
}

// HarvestCelestialBody strips a discovered body for an ore lump and a
// permanent mining bonus. Once per body.
func (e *Engine) HarvestCelestialBody(id string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	for i := range g.Bodies {
		b := &g.Bodies[i]
		if b.ID != id {
			continue
		}
		if b.Harvested {
			return fail(ErrAlreadyOwned)
		}
		b.Harvested = true
		lump := 500 * (1 + b.OreBonus*10)
		g.Ore += lump
		e.logger.Info("celestial body harvested", "body", b.Name, "ore", lump)
		return ok()
	}
	return fail(ErrUnknownUpgrade)
}

var bodyNames = []string{
	"Ceres-9", "Vesta Minor", "Pallas Reach", "Hygiea Drift", "Juno Shard",
	"Eunomia Belt", "Psyche Core", "Iris Fragment", "Themis Halo", "Bamberga",
}

// exploreLocked converts exploration progress into discoveries. One body
// per 100 progress, capped at the name table.
func (e *Engine) exploreLocked() {
	g := e.st
	for len(g.Bodies) < len(bodyNames) && g.ExplorationProgress >= float64(len(g.Bodies)+1)*100 {
		name := bodyNames[len(g.Bodies)]
		g.Bodies = append(g.Bodies, state.CelestialBody{
			ID:       fmt.Sprintf("body-%d", len(g.Bodies)+1),
			Name:     name,
			OreBonus: 0.05 + e.rng.Float64()*0.2,
		})
		e.logger.Info("celestial body discovered", "body", name)
	}
}
