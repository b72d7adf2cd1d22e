package logging

import (
	"context"
	"strings"
	"time"
)

// EventType names an event as "<category>.<what_happened>".
type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

var severityNames = [...]string{
	SeverityDebug: "debug",
	SeverityInfo:  "info",
	SeverityWarn:  "warn",
	SeverityError: "error",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// ParseSeverity maps a level name onto a Severity. Unknown names report
// false and SeverityInfo.
func ParseSeverity(value string) (Severity, bool) {
	name := strings.ToLower(strings.TrimSpace(value))
	if name == "warning" {
		name = "warn"
	}
	for level, candidate := range severityNames {
		if candidate == name {
			return Severity(level), true
		}
	}
	return SeverityInfo, false
}

// EntityKind tags the subject of an event.
type EntityKind string

const (
	EntityKindPlayer  EntityKind = "player"
	EntityKindBot     EntityKind = "bot"
	EntityKindFood    EntityKind = "food"
	EntityKindSession EntityKind = "session"
	EntityKindWorld   EntityKind = "world"
)

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Categories used for per-category severity floors. Helper packages may add
// their own.
const (
	CategoryGameplay = "gameplay"
	CategoryCombat   = "combat"
	CategoryNetwork  = "network"
)

// Event is one structured record. Time is stamped by the router when zero.
type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Actor     EntityRef      `json:"actor"`
	Targets   []EntityRef    `json:"targets,omitempty"`
	Severity  Severity       `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	CommandID string         `json:"commandId,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher discards every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}

// copyEvent detaches the slices and maps of event so a sink or a field merge
// cannot alias the publisher's values.
func copyEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		cloned.Extra = make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			cloned.Extra[k] = v
		}
	}
	return cloned
}
