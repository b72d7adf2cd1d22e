package network

import (
	"context"

	"snake-arena/server/logging"
)

const (
	// EventControlThrottled is emitted when a session exceeds its control message rate.
	EventControlThrottled logging.EventType = "network.control_throttled"
	// EventMalformedMessage is emitted when an inbound message cannot be decoded.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventOutboundOverflow is emitted when a session's send queue is full and its baseline is reset.
	EventOutboundOverflow logging.EventType = "network.outbound_overflow"
	// EventWriteFailed is emitted when a frame cannot be written to a connection.
	EventWriteFailed logging.EventType = "network.write_failed"
)

// ThrottlePayload captures the limiter state for a dropped control message.
type ThrottlePayload struct {
	Limit float64 `json:"limit"`
	Burst int     `json:"burst"`
}

// MessagePayload describes an inbound message that could not be used.
type MessagePayload struct {
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

// OverflowPayload captures the queue depth at the time of overflow.
type OverflowPayload struct {
	QueueDepth int `json:"queueDepth"`
}

// WritePayload captures a failed write.
type WritePayload struct {
	Error string `json:"error"`
}

// ControlThrottled publishes a debug event for a rate-limited control message.
func ControlThrottled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ThrottlePayload, extra map[string]any) {
	publish(ctx, pub, EventControlThrottled, logging.SeverityDebug, tick, actor, payload, extra)
}

// MalformedMessage publishes a debug event for an undecodable message.
func MalformedMessage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessagePayload, extra map[string]any) {
	publish(ctx, pub, EventMalformedMessage, logging.SeverityDebug, tick, actor, payload, extra)
}

// OutboundOverflow publishes a warning when a frame is dropped.
func OutboundOverflow(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload OverflowPayload, extra map[string]any) {
	publish(ctx, pub, EventOutboundOverflow, logging.SeverityWarn, tick, actor, payload, extra)
}

// WriteFailed publishes a warning for a failed socket write.
func WriteFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload WritePayload, extra map[string]any) {
	publish(ctx, pub, EventWriteFailed, logging.SeverityWarn, tick, actor, payload, extra)
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
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
