package combat

import (
	"context"

	"snake-arena/server/logging"
)

const (
	// EventAgentKilled is emitted when an agent dies for any reason.
	EventAgentKilled logging.EventType = "combat.agent_killed"
	// EventHeadOn is emitted when two heads meet inside the bearing threshold.
	EventHeadOn logging.EventType = "combat.head_on"
)

// AgentKilledPayload describes why an agent died and what it left behind.
type AgentKilledPayload struct {
	Reason      string  `json:"reason"`
	KillerID    string  `json:"killerId,omitempty"`
	Length      float64 `json:"length"`
	DroppedFood int     `json:"droppedFood"`
}

// HeadOnPayload captures the lengths compared in a head-on collision.
type HeadOnPayload struct {
	Length      float64 `json:"length"`
	OtherLength float64 `json:"otherLength"`
	Bearing     float64 `json:"bearing"`
}

// AgentKilled publishes a death event.
func AgentKilled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentKilledPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAgentKilled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// HeadOn publishes a debug event for a resolved head-on collision.
func HeadOn(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload HeadOnPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHeadOn,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
