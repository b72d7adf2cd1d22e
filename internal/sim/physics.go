package sim

import (
	"math"
	"time"

	"snake-arena/server/internal/spatial"
	"snake-arena/server/internal/world"
)

// BaseSpeed is the cruising speed for an agent of the given length.
func BaseSpeed(cfg world.Config, length float64) float64 {
	return math.Max(cfg.BaseSpeedMin, cfg.BaseSpeedMax-length/cfg.SpeedLengthDivisor)
}

// TurnRate is the maximum heading change per tick for the given length.
func TurnRate(cfg world.Config, length float64) float64 {
	span := cfg.TurnRateMax - cfg.TurnRateMin
	return math.Max(cfg.TurnRateMin, cfg.TurnRateMax-length/cfg.TurnLengthDivisor*span)
}

// stepHeading rotates current toward target along the shortest arc by at
// most rate.
func stepHeading(current, target, rate float64) float64 {
	diff := world.AngleDiff(current, target)
	if diff > rate {
		diff = rate
	} else if diff < -rate {
		diff = -rate
	}
	return world.NormalizeAngle(current + diff)
}

// advanceAgent runs one physics step for a living agent: heading, speed,
// boost drain and trail drops, position, history, body and re-indexing.
func advanceAgent(w *world.World, a *world.Agent, now time.Time) {
	cfg := w.Config()

	a.TurnRate = TurnRate(cfg, a.Length)
	a.Angle = stepHeading(a.Angle, a.TargetAngle, a.TurnRate)

	if a.Boosting && a.Length <= cfg.BoostMinLength {
		a.Boosting = false
	}
	target := BaseSpeed(cfg, a.Length)
	if a.Boosting {
		target *= cfg.BoostMultiplier
	}
	if a.Effects.SpeedActive(now) {
		target *= cfg.SpeedBoostMultiplier
	} else if !a.Effects.SpeedUntil.IsZero() {
		a.Effects.SpeedUntil = time.Time{}
	}
	a.Speed += (target - a.Speed) * cfg.SpeedInterpolation

	if a.Boosting {
		a.Length = math.Max(cfg.BoostMinLength, a.Length-cfg.BoostCost)
		a.BoostTicks++
		if a.BoostTicks%uint64(cfg.BoostDropInterval) == 0 {
			tail, _ := a.Body.Back()
			w.CreateTrailFood(
				tail.X-math.Cos(a.Angle)*cfg.BoostDropDistance,
				tail.Y-math.Sin(a.Angle)*cfg.BoostDropDistance,
			)
		}
		if a.Length <= cfg.BoostMinLength {
			a.Boosting = false
		}
	} else {
		a.BoostTicks = 0
	}

	a.X += math.Cos(a.Angle) * a.Speed
	a.Y += math.Sin(a.Angle) * a.Speed

	a.History.PushFront(world.Sample{X: a.X, Y: a.Y, At: now})
	a.History.TrimTo(cfg.HistorySize)

	a.Body.PushFront(world.Point{X: a.X, Y: a.Y})
	if limit := int(math.Max(1, math.Floor(a.Length))); a.Body.Len() > limit {
		a.Body.TrimTo(limit)
	}

	if a.Effects.Magnet {
		pullFood(w, a)
		a.Effects.Magnet = false
	}

	w.ReindexAgent(a)
}

// pullFood moves every food item inside the magnet radius part of the way
// toward the agent's head.
func pullFood(w *world.World, a *world.Agent) {
	cfg := w.Config()
	for _, f := range w.QueryFood(spatial.RectAround(a.X, a.Y, cfg.MagnetRadius)) {
		if math.Hypot(f.X-a.X, f.Y-a.Y) > cfg.MagnetRadius {
			continue
		}
		w.MoveFood(f, f.X+(a.X-f.X)*cfg.MagnetPull, f.Y+(a.Y-f.Y)*cfg.MagnetPull)
	}
}

// advanceWanderingFood drifts moving food and turns it back toward the
// centre when it would leave the arena.
func advanceWanderingFood(w *world.World) {
	cfg := w.Config()
	rng := w.RNG()
	limit := cfg.WorldRadius - cfg.WanderBoundaryInset
	for _, f := range w.WanderingFood() {
		if rng.Float64() < cfg.WanderTurnChance {
			f.Wander.Heading += (rng.Float64() - 0.5) * cfg.WanderTurnAmount
		}
		nx := f.X + math.Cos(f.Wander.Heading)*f.Wander.Speed
		ny := f.Y + math.Sin(f.Wander.Heading)*f.Wander.Speed
		if math.Hypot(nx, ny) > limit {
			f.Wander.Heading = math.Atan2(-f.Y, -f.X)
			nx = f.X + math.Cos(f.Wander.Heading)*f.Wander.Speed
			ny = f.Y + math.Sin(f.Wander.Heading)*f.Wander.Speed
		}
		f.Wander.Heading = world.NormalizeAngle(f.Wander.Heading)
		w.MoveFood(f, nx, ny)
	}
}
