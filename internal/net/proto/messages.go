package proto

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"snake-arena/server/internal/delta"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// MaxNameLength bounds display names in runes.
	MaxNameLength = 16
	// DefaultName is used when a join carries no usable name.
	DefaultName = "Anonymous"
)

// Client message type identifiers.
const (
	TypeJoin      = "join"
	TypeControl   = "control"
	TypeHeartbeat = "heartbeat"
)

// Server message type identifiers.
const (
	TypeSetup        = "setup"
	TypeState        = "state"
	TypeDeath        = "death"
	TypeHeartbeatAck = "heartbeat"
)

// ClientMessage captures an inbound websocket message from the client.
// Typed fields stay raw so each one is validated on its own.
type ClientMessage struct {
	Ver      int             `json:"ver,omitempty"`
	Type     string          `json:"type"`
	Name     json.RawMessage `json:"name,omitempty"`
	Angle    json.RawMessage `json:"angle,omitempty"`
	Boosting json.RawMessage `json:"boosting,omitempty"`
	SentAt   json.RawMessage `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	switch msg.Type {
	case TypeJoin, TypeControl, TypeHeartbeat:
	default:
		return msg, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// Join is a validated join request.
type Join struct {
	Name string
}

// ParseJoin extracts the display name, falling back to DefaultName.
func ParseJoin(msg ClientMessage) Join {
	var name string
	if !present(msg.Name) || json.Unmarshal(msg.Name, &name) != nil {
		return Join{Name: DefaultName}
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	if name == "" {
		name = DefaultName
	}
	return Join{Name: name}
}

// Control is a validated steering message. A nil field was absent or
// malformed and must be left untouched.
type Control struct {
	Angle    *float64
	Boosting *bool
}

// Empty reports whether no field survived validation.
func (c Control) Empty() bool { return c.Angle == nil && c.Boosting == nil }

// ParseControl validates each field independently: the angle must be a
// finite number and the boost flag a boolean.
func ParseControl(msg ClientMessage) Control {
	var control Control
	if present(msg.Angle) {
		var angle float64
		if err := json.Unmarshal(msg.Angle, &angle); err == nil && !math.IsNaN(angle) && !math.IsInf(angle, 0) {
			control.Angle = &angle
		}
	}
	if present(msg.Boosting) {
		var boosting bool
		if err := json.Unmarshal(msg.Boosting, &boosting); err == nil {
			control.Boosting = &boosting
		}
	}
	return control
}

// ParseHeartbeat returns the client's send time in unix milliseconds, or
// zero when absent or malformed.
func ParseHeartbeat(msg ClientMessage) int64 {
	if !present(msg.SentAt) {
		return 0
	}
	var sentAt float64
	if err := json.Unmarshal(msg.SentAt, &sentAt); err != nil || math.IsNaN(sentAt) || math.IsInf(sentAt, 0) || sentAt <= 0 {
		return 0
	}
	return int64(sentAt)
}

// present treats JSON null like an absent field; decoding null into a
// scalar would otherwise succeed with the zero value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Setup is sent once a join succeeds.
type Setup struct {
	Ver         int     `json:"ver"`
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	WorldRadius float64 `json:"worldRadius"`
	TickRate    int     `json:"tickRate"`
	NetworkRate int     `json:"networkRate"`
	Codec       string  `json:"codec"`
}

// NewSetup stamps version and type.
func NewSetup(id string, worldRadius float64, tickRate, networkRate int, codec string) Setup {
	return Setup{
		Ver:         Version,
		Type:        TypeSetup,
		ID:          id,
		WorldRadius: worldRadius,
		TickRate:    tickRate,
		NetworkRate: networkRate,
		Codec:       codec,
	}
}

// State carries one per-viewer delta.
type State struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	delta.Delta
}

// NewState wraps d for the wire.
func NewState(d delta.Delta, serverTime int64) State {
	return State{Ver: Version, Type: TypeState, ServerTime: serverTime, Delta: d}
}

// Death tells a viewer its agent died. Score is the floored final length.
type Death struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
	KillerID string `json:"killerId,omitempty"`
}

// NewDeath stamps version and type.
func NewDeath(score int, reason, killerID string) Death {
	return Death{Ver: Version, Type: TypeDeath, Score: score, Reason: reason, KillerID: killerID}
}

// HeartbeatAck echoes timing metadata back to the client.
type HeartbeatAck struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// NewHeartbeatAck stamps version and type.
func NewHeartbeatAck(serverTime, clientTime, rttMillis int64) HeartbeatAck {
	return HeartbeatAck{
		Ver:        Version,
		Type:       TypeHeartbeatAck,
		ServerTime: serverTime,
		ClientTime: clientTime,
		RTTMillis:  rttMillis,
	}
}
