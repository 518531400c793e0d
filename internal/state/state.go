package state

import "time"

// SpaceStats holds the per-stat levels for the Space Age subsystem.
// Combat stays at zero until explicitly unlocked.
type SpaceStats struct {
	Speed             int64 `json:"speed"`
	Exploration       int64 `json:"exploration"`
	SelfReplication   int64 `json:"self_replication"`
	WireProduction    int64 `json:"wire_production"`
	MiningProduction  int64 `json:"mining_production"`
	FactoryProduction int64 `json:"factory_production"`
	HazardEvasion     int64 `json:"hazard_evasion"`
	Combat            int64 `json:"combat"`
}

// Stock is one synthetic market listing. History is a bounded ring of
// recent prices, newest last.
type Stock struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	PrevPrice  float64   `json:"prev_price"`
	Volatility float64   `json:"volatility"`
	Trend      float64   `json:"trend"`
	History    []float64 `json:"history,omitempty"`
}

// Holding is a portfolio position with a weighted-average cost basis.
type Holding struct {
	StockID  string  `json:"stock_id"`
	Quantity int64   `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

type CelestialBody struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OreBonus  float64 `json:"ore_bonus"`
	Harvested bool    `json:"harvested"`
}

// ResourceMarket is the independent demand/trend state for one space-market
// resource.
type ResourceMarket struct {
	Price  float64 `json:"price"`
	Demand float64 `json:"demand"`
	Trend  float64 `json:"trend"`
}

// PrestigeRewards are the permanent multipliers carried across resets.
// All multipliers default to 1.
type PrestigeRewards struct {
	ProductionBonus float64 `json:"production_bonus"`
	ResearchBonus   float64 `json:"research_bonus"`
	WireEfficiency  float64 `json:"wire_efficiency"`
	ClickBonus      float64 `json:"click_bonus"`
	StartingMoney   float64 `json:"starting_money"`
}

// Upgrade ledger category ids. Membership in a ledger implies the upgrade's
// effect has been applied; repeatable categories may repeat ids.
const (
	CatOps        = "ops"
	CatCreativity = "creativity"
	CatTrust      = "trust"
	CatResearch   = "research"
	CatMemory     = "memory"
	CatSpace      = "space"
)

// Space market resource keys.
const (
	ResPaperclips = "paperclips"
	ResAerograde  = "aerograde"
	ResOre        = "ore"
	ResWire       = "wire"
)

// GameState is the single long-lived record for one player session. It is
// owned by the simulation engine and mutated only through engine methods.
type GameState struct {
	// Core resources
	Paperclips         float64
	Money              float64
	Wire               float64
	TotalClipsMade     float64
	LifetimePaperclips float64
	PaperclipsSold     float64
	TotalSales         float64

	// Production assets
	AutoClippers         int64
	MegaClippers         int64
	MegaClippersUnlocked bool
	ProductionMultiplier float64
	ClickMultiplier      float64

	// Wire supply
	WireSpoolSize   float64
	WirePrice       float64
	SpoolsPurchased int64
	SpoolSizeLevel  int64
	AutoWireBuyer   bool

	// Market
	PaperclipPrice     float64
	MarketTrend        float64
	SeasonalMultiplier float64
	DemandBoost        float64
	MarketDemand       float64

	// Research
	ResearchPoints   float64
	ResearchRate     float64
	UnlockedResearch []string

	// Advanced resources
	Trust              float64
	Ops                float64
	OpsMax             float64
	Memory             float64
	MemoryMax          float64
	MemoryRegenRate    float64
	CPULevel           int64
	Creativity         float64
	CreativityUnlocked bool
	CreativityRate     float64
	Yomi               float64
	YomiRate           float64

	// Purchased upgrades, keyed by category id
	Upgrades map[string][]string

	// Stock market
	StockMarketUnlocked bool
	Stocks              []Stock
	Holdings            []Holding
	TradingBots         int64
	BotIntelligence     int64
	BotRiskThreshold    float64
	BotTradingBudget    float64
	BotTradingProfit    float64
	BotTradingLosses    float64
	RealizedProfit      float64

	// Prestige
	PrestigeLevel  int64
	PrestigePoints int64
	Rewards        PrestigeRewards

	// Space Age
	SpaceAgeUnlocked    bool
	Probes              int64
	WireHarvesters      int64
	OreHarvesters       int64
	Factories           int64
	Ore                 float64
	Aerograde           float64
	Energy              float64
	EnergyPerSecond     float64
	Stats               SpaceStats
	CombatUnlocked      bool
	Honor               int64
	BattlesWon          int64
	BattlesLost         int64
	AutoBattle          bool
	DroneReplication    bool
	ExplorationProgress float64
	Bodies              []CelestialBody
	SpaceMarkets        map[string]*ResourceMarket
	AutoSell            bool
	AutoSellFraction    float64

	// Wall-clock of the last processed tick, used for offline catch-up.
	LastSeen time.Time
}

// New returns a fresh state with first-session defaults. Every numeric
// default here doubles as the recovery value for absent or corrupt snapshot
// fields (see snapshot.go).
func New() *GameState {
	return &GameState{
		Wire:                 1000,
		ProductionMultiplier: 1,
		ClickMultiplier:      1,

		WireSpoolSize: 1000,
		WirePrice:     20,

		PaperclipPrice:     0.25,
		MarketTrend:        1,
		SeasonalMultiplier: 1,
		DemandBoost:        1,

		MemoryRegenRate: 1,

		Upgrades: map[string][]string{},

		BotIntelligence:  1,
		BotRiskThreshold: 0.05,

		Rewards: PrestigeRewards{
			ProductionBonus: 1,
			ResearchBonus:   1,
			WireEfficiency:  1,
			ClickBonus:      1,
		},

		SpaceMarkets:     DefaultSpaceMarkets(),
		AutoSellFraction: 0.1,
	}
}

// DefaultSpaceMarkets returns the initial per-resource space market state.
func DefaultSpaceMarkets() map[string]*ResourceMarket {
	return map[string]*ResourceMarket{
		ResPaperclips: {Price: 0.05, Demand: 10, Trend: 1},
		ResAerograde:  {Price: 5, Demand: 2, Trend: 1},
		ResOre:        {Price: 1.5, Demand: 5, Trend: 1},
		ResWire:       {Price: 0.8, Demand: 8, Trend: 1},
	}
}

// UpgradeCount reports how many times id has been purchased in a category.
func (g *GameState) UpgradeCount(category, id string) int {
	n := 0
	for _, owned := range g.Upgrades[category] {
		if owned == id {
			n++
		}
	}
	return n
}

// HasUpgrade reports whether id has been purchased at least once.
func (g *GameState) HasUpgrade(category, id string) bool {
	return g.UpgradeCount(category, id) > 0
}

// HasResearch reports membership in the unlocked research set.
func (g *GameState) HasResearch(id string) bool {
	for _, r := range g.UnlockedResearch {
		if r == id {
			return true
		}
	}
	return false
}

// Holding returns the portfolio position for a stock, or nil.
func (g *GameState) Holding(stockID string) *Holding {
	for i := range g.Holdings {
		if g.Holdings[i].StockID == stockID {
			return &g.Holdings[i]
		}
	}
	return nil
}

// Stock returns the listed stock by id, or nil.
func (g *GameState) Stock(id string) *Stock {
	for i := range g.Stocks {
		if g.Stocks[i].ID == id {
			return &g.Stocks[i]
		}
	}
	return nil
}
