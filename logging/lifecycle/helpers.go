package lifecycle

import (
	"context"

	"snake-arena/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player's agent enters the world.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player leaves the world.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventBotSpawned is emitted when the population manager adds a bot.
	EventBotSpawned logging.EventType = "lifecycle.bot_spawned"
	// EventBotRetired is emitted when the population manager removes a bot.
	EventBotRetired logging.EventType = "lifecycle.bot_retired"
)

// PlayerJoinedPayload captures spawn metadata for a new agent.
type PlayerJoinedPayload struct {
	Name   string  `json:"name"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// BotPayload names the bot that changed.
type BotPayload struct {
	Name   string  `json:"name"`
	Length float64 `json:"length,omitempty"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerJoined, logging.SeverityInfo, tick, actor, payload, extra)
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDisconnected, logging.SeverityInfo, tick, actor, payload, extra)
}

// BotSpawned publishes a debug event for a new bot.
func BotSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BotPayload, extra map[string]any) {
	publish(ctx, pub, EventBotSpawned, logging.SeverityDebug, tick, actor, payload, extra)
}

// BotRetired publishes a debug event for a removed bot.
func BotRetired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BotPayload, extra map[string]any) {
	publish(ctx, pub, EventBotRetired, logging.SeverityDebug, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}
