package intake

import (
	"time"

	"snake-arena/server/internal/net/proto"
	"snake-arena/server/internal/sim"
)

const (
	// RejectEmpty means no field of the control message survived validation.
	RejectEmpty = "empty"
	// RejectNoAgent means the connection has no live agent to steer.
	RejectNoAgent = "no_agent"
)

// Enqueuer is the part of sim.Engine the intake needs.
type Enqueuer interface {
	Enqueue(sim.Command) (bool, string)
}

type CommandContext struct {
	Engine Enqueuer
	Now    func() time.Time
}

// StageControl turns a validated control message into steering commands for
// agentID. Each field is staged on its own so a bad angle never blocks a
// good boost flag. The returned reason is from the first rejection.
func StageControl(ctx CommandContext, agentID string, control proto.Control) ([]sim.Command, string) {
	if control.Empty() {
		return nil, RejectEmpty
	}
	if agentID == "" {
		return nil, RejectNoAgent
	}
	if ctx.Engine == nil {
		return nil, sim.CommandRejectQueueFull
	}

	issuedAt := time.Now()
	if ctx.Now != nil {
		issuedAt = ctx.Now()
	}

	var staged []sim.Command
	var commands []sim.Command
	if control.Angle != nil {
		commands = append(commands, sim.SetTargetHeading(agentID, *control.Angle))
	}
	if control.Boosting != nil {
		commands = append(commands, sim.SetBoosting(agentID, *control.Boosting))
	}

	reason := ""
	for _, command := range commands {
		command.IssuedAt = issuedAt
		if ok, why := ctx.Engine.Enqueue(command); !ok {
			if reason == "" {
				reason = why
			}
			continue
		}
		staged = append(staged, command)
	}
	return staged, reason
}

// StagePing records a measured round trip for agentID.
func StagePing(ctx CommandContext, agentID string, rtt time.Duration) (bool, string) {
	if agentID == "" {
		return false, RejectNoAgent
	}
	if ctx.Engine == nil {
		return false, sim.CommandRejectQueueFull
	}
	command := sim.SetPing(agentID, rtt)
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	}
	return ctx.Engine.Enqueue(command)
}
