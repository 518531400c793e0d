package sim

import "math"

// validDT guards every tick entry point: negative or non-finite elapsed
// time makes the tick a no-op instead of corrupting accumulators.
func validDT(dt float64) bool {
	return dt > 0 && !math.IsNaN(dt) && !math.IsInf(dt, 0)
}

// Tick advances clip production by dt seconds. Production is clamped by
// available wire at 1 wire per clip, scaled down by the prestige wire
// efficiency. Wire decreases by exactly the wire consumed.
func (e *Engine) Tick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	rate := float64(g.AutoClippers)*AutoClipperRate + float64(g.MegaClippers)*MegaClipperRate
	if rate <= 0 {
		e.autoBuyWireLocked()
		return
	}
	want := rate * g.ProductionMultiplier * g.Rewards.ProductionBonus * dt
	e.produceClipsLocked(want)
	e.autoBuyWireLocked()
}

// produceClipsLocked mints up to want clips, bounded by wire on hand.
func (e *Engine) produceClipsLocked(want float64) float64 {
	g := e.st
	if want <= 0 || math.IsNaN(want) || math.IsInf(want, 0) {
		return 0
	}
	// Wire efficiency > 1 stretches each unit of wire across more clips.
	wirePerClip := 1.0 / g.Rewards.WireEfficiency
	maxByWire := g.Wire / wirePerClip
	made := math.Min(want, maxByWire)
	if made <= 0 {
		return 0
	}
	g.Paperclips += made
	g.TotalClipsMade += made
	g.Wire -= made * wirePerClip
	if g.Wire < 0 {
		g.Wire = 0
	}
	if !g.MegaClippersUnlocked && g.TotalClipsMade >= MegaClipperUnlockClips {
		g.MegaClippersUnlocked = true
	}
	return made
}

// autoBuyWireLocked restocks wire when the auto-buyer is on and the spool
// is affordable. Buys at most one spool per tick.
func (e *Engine) autoBuyWireLocked() {
	g := e.st
	if !g.AutoWireBuyer || g.Wire >= g.WireSpoolSize*0.1 {
		return
	}
	if g.Money < g.WirePrice {
		return
	}
	g.Money -= g.WirePrice
	g.Wire += g.WireSpoolSize
	g.SpoolsPurchased++
	g.WirePrice = nextWirePrice(g.WirePrice, g.SpoolsPurchased, e.rng.Float64())
}

// ResearchTick accrues research points.
func (e *Engine) ResearchTick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	g.ResearchPoints += g.ResearchRate * g.Rewards.ResearchBonus * dt
}

// StatsTick regenerates memory toward memoryMax, ops toward opsMax at the
// CPU-derived rate, and accrues creativity and yomi once unlocked.
func (e *Engine) StatsTick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if g.Memory < g.MemoryMax {
		g.Memory = math.Min(g.MemoryMax, g.Memory+g.MemoryRegenRate*dt)
	}
	if g.Ops < g.OpsMax {
		g.Ops = math.Min(g.OpsMax, g.Ops+OpsRegenRate(g.CPULevel)*dt)
	}

	// Creativity unlocks on raw compute capacity; the generation tier doubles
	// the accrual rate.
	if !g.CreativityUnlocked && g.OpsMax >= CreativityUnlockOpsMax {
		g.CreativityUnlocked = true
		if g.CreativityRate == 0 {
			g.CreativityRate = 0.5
		}
	}
	if g.CreativityUnlocked {
		rate := g.CreativityRate
		if g.OpsMax >= CreativityGenTierOpsMax {
			rate *= 2
		}
		g.Creativity += rate * dt
	}
	if g.YomiRate > 0 {
		g.Yomi += g.YomiRate * dt
	}
}

// SpaceTick runs drone production for Space Age sessions. Harvesters mine
// wire and ore; factories convert one wire and one ore per aerograde clip.
// All output scales by the energy coverage ratio, and energy surplus above
// the fleet draw accumulates as spendable energy.
func (e *Engine) SpaceTick(dt float64) {
	if !validDT(dt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	if !g.SpaceAgeUnlocked {
		return
	}

	required := EnergyRequired(g.WireHarvesters+g.OreHarvesters, g.Factories)
	coverage := EnergyCoverage(g.EnergyPerSecond, required)
	if surplus := g.EnergyPerSecond - required; surplus > 0 {
		g.Energy += surplus * dt
	}

	g.Wire += SpaceWirePerSecond(g.WireHarvesters, g.Stats.WireProduction) * coverage * dt

	oreBonus := 1.0
	for _, b := range g.Bodies {
		if b.Harvested {
			oreBonus += b.OreBonus
		}
	}
	g.Ore += SpaceOrePerSecond(g.OreHarvesters, g.Stats.MiningProduction) * oreBonus * coverage * dt

	want := SpaceClipsPerSecond(g.Factories, g.Stats.FactoryProduction) * coverage * dt
	made := math.Min(want, math.Min(g.Wire, g.Ore))
	if made > 0 {
		g.Aerograde += made
		g.Wire -= made
		g.Ore -= made
	}

	// Exploration advances with probe speed; new bodies are discovered at
	// progress milestones (see exploreLocked).
	if g.Probes > 0 {
		g.ExplorationProgress += float64(g.Probes) * (1 + 0.2*float64(g.Stats.Speed)) *
			(1 + 0.3*float64(g.Stats.Exploration)) * 0.01 * dt
		e.exploreLocked()
	}

	// Self-replication slowly grows the drone fleet when enabled.
	if g.DroneReplication && g.Stats.SelfReplication > 0 {
		growth := float64(g.Stats.SelfReplication) * 0.002 * dt
		if e.rng.Float64() < growth*float64(g.WireHarvesters) {
			g.WireHarvesters++
		}
		if e.rng.Float64() < growth*float64(g.OreHarvesters) {
			g.OreHarvesters++
		}
	}
}
