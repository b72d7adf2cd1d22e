package world

import (
	"context"

	"snake-arena/server/logging"
	"snake-arena/server/logging/combat"
)

// Kill reasons.
const (
	ReasonBoundary  = "boundary"
	ReasonHeadOn    = "head_on"
	ReasonBody      = "body"
	ReasonAntiCheat = "anticheat"
	ReasonAdmin     = "admin"
)

// KillCause records why an agent died and who, if anyone, killed it.
type KillCause struct {
	Reason   string
	KillerID string
}

// EntityRef converts an agent into a logging reference.
func (a *Agent) EntityRef() logging.EntityRef {
	kind := logging.EntityKindPlayer
	if a.Bot() {
		kind = logging.EntityKindBot
	}
	return logging.EntityRef{ID: a.ID, Kind: kind}
}

// KillAgent marks a living agent dead, scatters part of its length as food
// along its former body, deregisters it from the agent index and fires the
// death hook. It reports false when the agent is unknown or already dead.
func (w *World) KillAgent(id string, cause KillCause) bool {
	agent, ok := w.agents[id]
	if !ok || !agent.Alive {
		return false
	}
	dropped := w.scatterBody(agent)
	agent.Alive = false
	agent.Boosting = false
	w.deindexAgent(agent, "kill_agent")

	combat.AgentKilled(context.Background(), w.publisher, w.tick, agent.EntityRef(), combat.AgentKilledPayload{
		Reason:      cause.Reason,
		KillerID:    cause.KillerID,
		Length:      agent.Length,
		DroppedFood: dropped,
	}, nil)

	if w.onDeath != nil {
		w.onDeath(agent, cause)
	}
	return true
}

func (w *World) scatterBody(agent *Agent) int {
	remaining := agent.Length * RandomDistance(w.rng, w.cfg.DeathDropMin, w.cfg.DeathDropMin+w.cfg.DeathDropJitter)
	spread := w.cfg.DeathDropOffset / 2
	dropped := 0
	for i := 0; i < agent.Body.Len() && remaining > 0; i += w.cfg.DeathDropStep {
		seg := agent.Body.At(i)
		typeIndex := w.rng.Intn(w.cfg.DeathFoodMaxType + 1)
		for typeIndex > 0 && FoodTypes[typeIndex].Score > remaining {
			typeIndex--
		}
		x := seg.X + RandomDistance(w.rng, -spread, spread)
		y := seg.Y + RandomDistance(w.rng, -spread, spread)
		w.CreateFood(x, y, typeIndex)
		remaining -= FoodTypes[typeIndex].Score
		dropped++
	}
	return dropped
}
