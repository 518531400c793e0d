package sim

import "math"

// Pure tuning functions for the idle economy. Everything here is
// deterministic so balance tests and the montecarlo harness can call these
// directly.

// Production rates, clips per second per unit.
const (
	AutoClipperRate = 1.0
	MegaClipperRate = 50.0
)

// Cost curve bases and multipliers.
const (
	autoClipperBaseCost = 10.0
	autoClipperCostMult = 1.1

	megaClipperBaseCost = 500.0
	megaClipperCostMult = 1.12

	tradingBotBaseCost = 1000.0
	tradingBotCostMult = 1.25

	botIntelBaseCost = 500.0
	botIntelCostMult = 2.0

	statUpgradeBaseCost = 50.0 // yomi
	statUpgradeCostMult = 1.6

	probeCost = 500.0 // aerograde

	harvesterBaseCost = 50000.0 // money; wire and ore drones share one fleet curve
	harvesterCostMult = 1.08

	factoryCost     = 250.0 // ore per factory
	factoryCostMult = 1.15
)

// Unlock gates.
const (
	MegaClipperUnlockClips  = 75000.0
	StockMarketUnlockMoney  = 1000.0
	CreativityUnlockOpsMax  = 5000.0
	CreativityGenTierOpsMax = 20000.0
	CombatUnlockOps         = 50000.0
	SpaceAgeUnlockTrust     = 50.0
	SpaceAgeUnlockOps       = 10000.0
)

// Market tuning.
const (
	BasePaperclipPrice   = 0.25
	baseDemandRate       = 10.0 // clips/sec at the base price
	demandElasticity     = 1.3
	minDemand            = 0.0
	maxDemand            = 10000.0
	trendReversion       = 0.02
	trendVolatility      = 0.04
	trendFloor           = 0.5
	trendCeil            = 1.5
	spaceMarketReversion = 0.05 // price pull toward base*trend, per second
)

// GeometricCost is the canonical repeatable-purchase curve:
// floor(base * mult^count). Every repeatable cost in the game goes through
// this so persisted counts can never drift out of sync with costs.
func GeometricCost(base, mult float64, count int64) float64 {
	return math.Floor(base * math.Pow(mult, float64(count)))
}

func AutoClipperCost(owned int64) float64 {
	return GeometricCost(autoClipperBaseCost, autoClipperCostMult, owned)
}

func MegaClipperCost(owned int64) float64 {
	return GeometricCost(megaClipperBaseCost, megaClipperCostMult, owned)
}

func TradingBotCost(owned int64) float64 {
	return GeometricCost(tradingBotBaseCost, tradingBotCostMult, owned)
}

func BotIntelligenceCost(level int64) float64 {
	return GeometricCost(botIntelBaseCost, botIntelCostMult, level-1)
}

// StatUpgradeCost is the yomi price for raising a space stat to level+1.
func StatUpgradeCost(level int64) float64 {
	return GeometricCost(statUpgradeBaseCost, statUpgradeCostMult, level)
}

// Demand computes clips/sec of market demand from the player-set price.
// Demand falls as price rises above the base price and is modulated by the
// trend walk and seasonal multiplier.
func Demand(price, trend, seasonal, boost float64) float64 {
	if price <= 0 {
		return maxDemand
	}
	d := baseDemandRate * math.Pow(BasePaperclipPrice/price, demandElasticity)
	d *= trend * seasonal * boost
	return clamp(d, minDemand, maxDemand)
}

// NextTrend advances the mean-reverting demand trend walk by one step.
// noise should be a standard normal deviate.
func NextTrend(trend, noise float64) float64 {
	trend += (1.0 - trend) * trendReversion
	trend += noise * trendVolatility
	return clamp(trend, trendFloor, trendCeil)
}

// OpsRegenRate is ops/sec at a given CPU level.
func OpsRegenRate(cpuLevel int64) float64 {
	return float64(cpuLevel) * 2.5
}

// Space drone output. Stat levels add 25% per level over the base rate.
func SpaceWirePerSecond(harvesters, statLevel int64) float64 {
	return float64(harvesters) * 2.0 * (1 + 0.25*float64(statLevel))
}

func SpaceOrePerSecond(harvesters, statLevel int64) float64 {
	return float64(harvesters) * 1.5 * (1 + 0.25*float64(statLevel))
}

func SpaceClipsPerSecond(factories, statLevel int64) float64 {
	return float64(factories) * 10.0 * (1 + 0.25*float64(statLevel))
}

// EnergyRequired is the drone fleet's energy draw: 2 per harvester, 5 per
// factory.
func EnergyRequired(harvesters, factories int64) float64 {
	return 2*float64(harvesters) + 5*float64(factories)
}

// EnergyCoverage scales space production when supply falls short of the
// fleet's draw. Linear in available supply, clamped to [0, 1], so output
// degrades monotonically and never goes negative.
func EnergyCoverage(supply, required float64) float64 {
	if required <= 0 {
		return 1
	}
	return clamp(supply/required, 0, 1)
}

// Enemy fleet scaling: logarithmic difficulty in battles won.
func EnemyFleetSize(battlesWon int64) int {
	n := 8 + int(6*math.Log2(1+float64(battlesWon)))
	if n > 60 {
		n = 60
	}
	return n
}

func EnemyStrength(battlesWon int64) float64 {
	return 1.0 + 0.15*math.Log2(1+float64(battlesWon))
}

// HonorReward for a resolved battle.
func HonorReward(enemiesDestroyed int, combatStat int64) int64 {
	return int64(math.Floor(float64(enemiesDestroyed) * 10 * (1 + 0.2*float64(combatStat))))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
