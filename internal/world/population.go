package world

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"snake-arena/server/logging/lifecycle"
	"snake-arena/server/logging/simulation"
)

// PopulationConfig tunes the management pass.
type PopulationConfig struct {
	MinBots        int     `json:"minBots"`
	BotsPerHuman   int     `json:"botsPerHuman"`
	BotBonus       int     `json:"botBonus"`
	BotScoreFactor float64 `json:"botScoreFactor"`
	FoodBase       int     `json:"foodBase"`
	FoodPerAgent   int     `json:"foodPerAgent"`
	MinPowerups    int     `json:"minPowerups"`
}

// DefaultPopulationConfig returns the stock population targets.
func DefaultPopulationConfig() PopulationConfig {
	return PopulationConfig{
		MinBots:        5,
		BotsPerHuman:   2,
		BotBonus:       3,
		BotScoreFactor: 1.5,
		FoodBase:       1600,
		FoodPerAgent:   600,
		MinPowerups:    5,
	}
}

// BotNames seeds bot display names; duplicates get a numeric suffix.
var BotNames = []string{
	"Slinky", "Noodle", "Worminator", "Sir Hiss", "Pretzel",
	"Zippy", "Slitherin", "Boop", "Mr. Wiggles", "Snek",
}

// PopulationReport summarises one management pass.
type PopulationReport = simulation.PopulationPayload

// Population keeps bot count, food density and powerup count near their
// targets. It only touches the world through the registry's exported
// lifecycle operations.
type Population struct {
	cfg PopulationConfig
}

// NewPopulation constructs a manager; non-positive fields take defaults.
func NewPopulation(cfg PopulationConfig) *Population {
	def := DefaultPopulationConfig()
	if cfg.MinBots < 0 {
		cfg.MinBots = def.MinBots
	}
	if cfg.BotsPerHuman < 0 {
		cfg.BotsPerHuman = def.BotsPerHuman
	}
	if cfg.BotScoreFactor <= 0 {
		cfg.BotScoreFactor = def.BotScoreFactor
	}
	if cfg.FoodBase < 0 {
		cfg.FoodBase = def.FoodBase
	}
	if cfg.FoodPerAgent < 0 {
		cfg.FoodPerAgent = def.FoodPerAgent
	}
	if cfg.MinPowerups < 0 {
		cfg.MinPowerups = def.MinPowerups
	}
	return &Population{cfg: cfg}
}

// Config returns the active targets.
func (p *Population) Config() PopulationConfig { return p.cfg }

// BotTarget computes the desired bot count from the living agents.
func (p *Population) BotTarget(agents []*Agent) int {
	humans := 0
	bots := 0
	maxHuman := 0.0
	botTotal := 0.0
	for _, a := range agents {
		if !a.Alive {
			continue
		}
		if a.Bot() {
			bots++
			botTotal += a.Length
			continue
		}
		humans++
		maxHuman = math.Max(maxHuman, a.Length)
	}
	target := humans * p.cfg.BotsPerHuman
	if bots > 0 && humans > 0 && maxHuman > botTotal/float64(bots)*p.cfg.BotScoreFactor {
		target += p.cfg.BotBonus
	}
	if target < p.cfg.MinBots {
		target = p.cfg.MinBots
	}
	return target
}

// FoodTarget computes the desired food count.
func (p *Population) FoodTarget(liveAgents int) int {
	return p.cfg.FoodBase + p.cfg.FoodPerAgent*liveAgents
}

// Manage runs one pass: reap corpses, expire trail food, then scale bots,
// food and powerups toward their targets.
func (p *Population) Manage(w *World, now time.Time) PopulationReport {
	var report PopulationReport
	report.CorpsesReaped = len(w.ReapDead())
	report.FoodExpired = p.expireFood(w, now)

	agents := w.LiveAgents()
	target := p.BotTarget(agents)
	var bots []*Agent
	for _, a := range agents {
		if a.Bot() {
			bots = append(bots, a)
		}
	}

	ctx := context.Background()
	if len(bots) < target {
		used := make(map[string]struct{}, len(agents))
		for _, a := range agents {
			used[a.Name] = struct{}{}
		}
		for i := len(bots); i < target; i++ {
			name := uniqueName(BotNames[w.RNG().Intn(len(BotNames))], used)
			used[name] = struct{}{}
			bot, err := w.CreateAgent(AgentSpec{Name: name, Kind: KindBot})
			if err != nil {
				continue
			}
			report.BotsAdded++
			lifecycle.BotSpawned(ctx, w.Publisher(), w.Tick(), bot.EntityRef(), lifecycle.BotPayload{Name: bot.Name}, nil)
		}
	} else if len(bots) > target {
		// Retire the shortest bots first.
		sort.SliceStable(bots, func(i, j int) bool { return bots[i].Length < bots[j].Length })
		for _, bot := range bots[:len(bots)-target] {
			if w.RemoveAgent(bot.ID) {
				report.BotsRemoved++
				lifecycle.BotRetired(ctx, w.Publisher(), w.Tick(), bot.EntityRef(), lifecycle.BotPayload{Name: bot.Name, Length: bot.Length}, nil)
			}
		}
	}

	humans, botCount := w.CountAgents()
	for w.FoodCount() < p.FoodTarget(humans+botCount) {
		w.SpawnFood()
		report.FoodAdded++
	}
	for w.PowerupCount() < p.cfg.MinPowerups {
		w.SpawnPowerup()
		report.PowerupsAdded++
	}

	if report != (PopulationReport{}) {
		simulation.PopulationAdjusted(ctx, w.Publisher(), w.Tick(), report, nil)
	}
	return report
}

func (p *Population) expireFood(w *World, now time.Time) int {
	ttl := w.Config().FoodExpiry
	if ttl <= 0 {
		return 0
	}
	var expired []string
	w.EachFood(func(f *Food) bool {
		if f.Expires && now.Sub(f.SpawnedAt) >= ttl {
			expired = append(expired, f.ID)
		}
		return true
	})
	for _, id := range expired {
		w.RemoveFood(id)
	}
	return len(expired)
}

func uniqueName(base string, used map[string]struct{}) string {
	if _, taken := used[base]; !taken {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + " " + strconv.Itoa(n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}
