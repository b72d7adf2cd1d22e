package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandHeading CommandType = "Heading"
	CommandBoost   CommandType = "Boost"
	CommandPing    CommandType = "Ping"
)

// HeadingCommand sets the agent's target heading in radians.
type HeadingCommand struct {
	Angle float64 `json:"angle"`
}

// BoostCommand toggles boosting.
type BoostCommand struct {
	Enabled bool `json:"enabled"`
}

// PingCommand records the connection's latency estimate.
type PingCommand struct {
	RTT time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	ActorID  string          `json:"actorId"`
	Type     CommandType     `json:"type"`
	IssuedAt time.Time       `json:"issuedAt"`
	Heading  *HeadingCommand `json:"heading,omitempty"`
	Boost    *BoostCommand   `json:"boost,omitempty"`
	Ping     *PingCommand    `json:"ping,omitempty"`
}

// SetTargetHeading builds a heading command.
func SetTargetHeading(actorID string, angle float64) Command {
	return Command{ActorID: actorID, Type: CommandHeading, Heading: &HeadingCommand{Angle: angle}}
}

// SetBoosting builds a boost command.
func SetBoosting(actorID string, enabled bool) Command {
	return Command{ActorID: actorID, Type: CommandBoost, Boost: &BoostCommand{Enabled: enabled}}
}

// SetPing builds a latency update command.
func SetPing(actorID string, rtt time.Duration) Command {
	return Command{ActorID: actorID, Type: CommandPing, Ping: &PingCommand{RTT: rtt}}
}
