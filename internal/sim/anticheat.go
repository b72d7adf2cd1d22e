package sim

import (
	"math"
	"time"

	"snake-arena/server/internal/ring"
	"snake-arena/server/internal/world"
)

// AntiCheatConfig tunes movement anomaly detection. Speeds are world units
// per second. TickInterval is the shortest gap a sample is measured over;
// positions only change once per simulation step, so two steps closer
// together than that still count as one full tick.
type AntiCheatConfig struct {
	Window          int           `json:"window"`
	MaxAverageSpeed float64       `json:"maxAverageSpeed"`
	MaxDisplacement float64       `json:"maxDisplacement"`
	TickInterval    time.Duration `json:"tickInterval"`
}

// DefaultAntiCheatConfig returns limits well above anything the physics can
// produce.
func DefaultAntiCheatConfig() AntiCheatConfig {
	return AntiCheatConfig{
		Window:          10,
		MaxAverageSpeed: 2000,
		MaxDisplacement: 200,
		TickInterval:    time.Second / 60,
	}
}

// Violation describes a failed movement check.
type Violation struct {
	Check    string
	Observed float64
	Limit    float64
}

const (
	CheckTeleport     = "teleport"
	CheckAverageSpeed = "average_speed"
)

type movement struct {
	last   world.Point
	at     time.Time
	speeds *ring.Deque[float64]
}

// AntiCheat tracks per-agent movement samples. It is driven from the
// simulation tick and shares the world lock.
type AntiCheat struct {
	cfg    AntiCheatConfig
	agents map[string]*movement
}

// NewAntiCheat constructs a detector; non-positive fields take defaults.
func NewAntiCheat(cfg AntiCheatConfig) *AntiCheat {
	def := DefaultAntiCheatConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxAverageSpeed <= 0 {
		cfg.MaxAverageSpeed = def.MaxAverageSpeed
	}
	if cfg.MaxDisplacement <= 0 {
		cfg.MaxDisplacement = def.MaxDisplacement
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	return &AntiCheat{cfg: cfg, agents: make(map[string]*movement)}
}

// Observe records the agent's position at now and reports a violation when
// the step or the windowed average speed exceeds its limit.
func (ac *AntiCheat) Observe(id string, pos world.Point, now time.Time) (Violation, bool) {
	m, ok := ac.agents[id]
	if !ok {
		ac.agents[id] = &movement{last: pos, at: now, speeds: ring.NewDeque[float64](ac.cfg.Window)}
		return Violation{}, false
	}
	elapsed := now.Sub(m.at)
	if elapsed <= 0 {
		return Violation{}, false
	}
	dt := max(elapsed, ac.cfg.TickInterval).Seconds()
	dist := math.Hypot(pos.X-m.last.X, pos.Y-m.last.Y)
	m.last = pos
	m.at = now

	if dist > ac.cfg.MaxDisplacement {
		return Violation{Check: CheckTeleport, Observed: dist, Limit: ac.cfg.MaxDisplacement}, true
	}

	m.speeds.PushFront(dist / dt)
	m.speeds.TrimTo(ac.cfg.Window)
	if m.speeds.Len() < ac.cfg.Window {
		return Violation{}, false
	}
	var sum float64
	m.speeds.Each(func(_ int, v float64) bool {
		sum += v
		return true
	})
	avg := sum / float64(m.speeds.Len())
	if avg > ac.cfg.MaxAverageSpeed {
		return Violation{Check: CheckAverageSpeed, Observed: avg, Limit: ac.cfg.MaxAverageSpeed}, true
	}
	return Violation{}, false
}

// Forget drops the samples for id.
func (ac *AntiCheat) Forget(id string) {
	delete(ac.agents, id)
}

// Prune drops samples for agents not in live.
func (ac *AntiCheat) Prune(live map[string]struct{}) {
	for id := range ac.agents {
		if _, ok := live[id]; !ok {
			delete(ac.agents, id)
		}
	}
}

// Tracked reports the number of agents with samples.
func (ac *AntiCheat) Tracked() int { return len(ac.agents) }
