package server

import (
	"time"

	"snake-arena/server/internal/net/proto"
)

const (
	ProtocolVersion   = proto.Version
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
)

// HeartbeatInterval is the cadence clients are expected to ping at.
func HeartbeatInterval() time.Duration { return heartbeatInterval }

// WriteWait bounds a single websocket write.
func WriteWait() time.Duration { return writeWait }
