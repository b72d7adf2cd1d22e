package anticheat

import (
	"context"

	"snake-arena/server/logging"
)

const (
	// EventMovementAnomaly is emitted when an agent's motion exceeds physical limits.
	EventMovementAnomaly logging.EventType = "anticheat.movement_anomaly"
)

// MovementAnomalyPayload captures the offending measurement.
type MovementAnomalyPayload struct {
	Check    string  `json:"check"`
	Observed float64 `json:"observed"`
	Limit    float64 `json:"limit"`
}

// MovementAnomaly publishes a warning for a detected movement violation.
func MovementAnomaly(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MovementAnomalyPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMovementAnomaly,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "anticheat",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
