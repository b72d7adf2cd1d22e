package sim

import (
	"context"
	"math"
	"sort"
	"time"

	"snake-arena/server/internal/spatial"
	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
	"snake-arena/server/logging/combat"
)

// Growth aggregates everything an agent ate in one tick.
type Growth struct {
	Score float64
	Color world.RGB
}

// Pickup pairs a claimed powerup with the agent that reached it first.
type Pickup struct {
	AgentID   string
	PowerupID string
}

// Outcome is the result of evaluating collisions for one tick. Nothing is
// mutated until Apply.
type Outcome struct {
	Kills    map[string]world.KillCause
	Consumed []string
	Growth   map[string]Growth
	Pickups  []Pickup
}

// Killed reports whether id is in the kill set.
func (o Outcome) Killed(id string) bool {
	_, ok := o.Kills[id]
	return ok
}

// KilledIDs returns the kill set sorted by id.
func (o Outcome) KilledIDs() []string {
	ids := make([]string, 0, len(o.Kills))
	for id := range o.Kills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Outcome) kill(id string, cause world.KillCause) {
	if _, dup := o.Kills[id]; dup {
		return
	}
	o.Kills[id] = cause
}

// EvaluateCollisions computes the kill set, consumed food, growth and
// powerup pickups for every living agent against the state at the start of
// the pass. Agents are visited in id order so claims are deterministic.
func EvaluateCollisions(w *world.World, now time.Time) Outcome {
	cfg := w.Config()
	out := Outcome{
		Kills:  make(map[string]world.KillCause),
		Growth: make(map[string]Growth),
	}
	claimedFood := make(map[string]struct{})
	claimedPowerups := make(map[string]struct{})
	powerups := w.Powerups()
	agents := w.LiveAgents()

	rewindSlack := cfg.BaseSpeedMax * cfg.BoostMultiplier * cfg.SpeedBoostMultiplier * float64(cfg.HistorySize)

	for _, a := range agents {
		if outsideArena(cfg, a) {
			out.kill(a.ID, world.KillCause{Reason: world.ReasonBoundary})
		}

		for _, p := range powerups {
			if _, taken := claimedPowerups[p.ID]; taken {
				continue
			}
			if math.Hypot(p.X-a.X, p.Y-a.Y) < a.Radius+p.Radius {
				claimedPowerups[p.ID] = struct{}{}
				out.Pickups = append(out.Pickups, Pickup{AgentID: a.ID, PowerupID: p.ID})
			}
		}

		growth, ate := out.Growth[a.ID]
		if !ate {
			growth.Color = a.Color
		}
		for _, f := range sortedFood(w.QueryFood(spatial.RectAround(a.X, a.Y, a.Radius+cfg.FoodQueryBuffer))) {
			if _, taken := claimedFood[f.ID]; taken {
				continue
			}
			if math.Hypot(f.X-a.X, f.Y-a.Y) >= a.Radius+f.Radius {
				continue
			}
			claimedFood[f.ID] = struct{}{}
			out.Consumed = append(out.Consumed, f.ID)
			growth.Score += f.Score
			growth.Color = growth.Color.Blend(f.Color, math.Min(1, cfg.ColorBlendPerScore*f.Score))
			ate = true
		}
		if ate {
			out.Growth[a.ID] = growth
		}

		evaluateAgentContacts(w, &out, a, now.Add(-a.Ping), rewindSlack)
	}
	return out
}

func outsideArena(cfg world.Config, a *world.Agent) bool {
	if math.Hypot(a.X, a.Y) > cfg.WorldRadius-a.Radius {
		return true
	}
	for i := 0; i < a.Body.Len(); i++ {
		seg := a.Body.At(i)
		if math.Hypot(seg.X, seg.Y) > cfg.WorldRadius {
			return true
		}
	}
	return false
}

func evaluateAgentContacts(w *world.World, out *Outcome, a *world.Agent, at time.Time, slack float64) {
	cfg := w.Config()
	reach := a.Radius + math.Max(cfg.MaxRadius, cfg.SegmentRadius) + slack
	for _, b := range w.NearbyAgents(a.X, a.Y, reach) {
		if b == a {
			continue
		}
		past := rewindAgent(b, at)

		if math.Hypot(past.head.X-a.X, past.head.Y-a.Y) < a.Radius+b.Radius {
			bearing := math.Abs(world.AngleDiff(a.Angle, math.Atan2(past.head.Y-a.Y, past.head.X-a.X)))
			if bearing <= cfg.HeadOnAngle {
				resolveHeadOn(w, out, a, b, bearing)
				continue
			}
		}

		for i := 1; i < b.Body.Len(); i++ {
			seg := past.Segment(i)
			if math.Hypot(seg.X-a.X, seg.Y-a.Y) < a.Radius+cfg.SegmentRadius {
				out.kill(a.ID, world.KillCause{Reason: world.ReasonBody, KillerID: b.ID})
				return
			}
		}
	}
}

func resolveHeadOn(w *world.World, out *Outcome, a, b *world.Agent, bearing float64) {
	switch {
	case a.Length > b.Length:
		out.kill(b.ID, world.KillCause{Reason: world.ReasonHeadOn, KillerID: a.ID})
	case a.Length < b.Length:
		out.kill(a.ID, world.KillCause{Reason: world.ReasonHeadOn, KillerID: b.ID})
	default:
		out.kill(a.ID, world.KillCause{Reason: world.ReasonHeadOn, KillerID: b.ID})
		out.kill(b.ID, world.KillCause{Reason: world.ReasonHeadOn, KillerID: a.ID})
	}
	combat.HeadOn(context.Background(), w.Publisher(), w.Tick(), a.EntityRef(), []logging.EntityRef{b.EntityRef()}, combat.HeadOnPayload{
		Length:      a.Length,
		OtherLength: b.Length,
		Bearing:     bearing,
	}, nil)
}

func sortedFood(items []*world.Food) []*world.Food {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// ApplyOutcome commits an evaluated outcome: consumed food is recycled,
// survivors grow and receive powerups, and the kill set dies.
func ApplyOutcome(w *world.World, out Outcome, now time.Time) {
	cfg := w.Config()
	for _, id := range out.Consumed {
		w.RemoveFood(id)
	}

	ids := make([]string, 0, len(out.Growth))
	for id := range out.Growth {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if out.Killed(id) {
			continue
		}
		a, ok := w.Agent(id)
		if !ok || !a.Alive {
			continue
		}
		g := out.Growth[id]
		a.Length += g.Score
		a.Radius = math.Min(cfg.MaxRadius, a.Radius+g.Score*cfg.RadiusGain)
		a.Color = g.Color
	}

	for _, pickup := range out.Pickups {
		p, ok := w.Powerup(pickup.PowerupID)
		if !ok {
			continue
		}
		if a, ok := w.Agent(pickup.AgentID); ok && a.Alive && !out.Killed(a.ID) {
			a.Activate(p, now)
		}
		w.RemovePowerup(p.ID)
	}

	for _, id := range out.KilledIDs() {
		w.KillAgent(id, out.Kills[id])
	}
}
