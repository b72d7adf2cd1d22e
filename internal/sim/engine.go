package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"

	"snake-arena/server/internal/world"
	"snake-arena/server/logging/anticheat"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// EngineConfig tunes command intake and the per-tick pipeline.
type EngineConfig struct {
	AITickDivisor   int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
	AntiCheat       AntiCheatConfig
	Population      world.PopulationConfig
}

// DefaultEngineConfig returns the stock engine tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AITickDivisor:   2,
		CommandCapacity: 4096,
		PerActorLimit:   16,
		WarningStep:     1024,
		AntiCheat:       DefaultAntiCheatConfig(),
		Population:      world.DefaultPopulationConfig(),
	}
}

// EngineHooks observe command intake.
type EngineHooks struct {
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// StepResult summarises one simulation tick.
type StepResult struct {
	Tick       uint64
	Now        time.Time
	Commands   int
	Killed     []string
	Consumed   int
	Violations int
}

// Engine owns the world and the single lock every job runs under.
type Engine struct {
	mu         deadlock.Mutex
	world      *world.World
	population *world.Population
	anticheat  *AntiCheat
	steerer    Steerer

	buffer *CommandBuffer
	config EngineConfig
	deps   Deps
	hooks  EngineHooks

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewEngine wraps w with a command buffer, population manager and anomaly
// detector.
func NewEngine(w *world.World, cfg EngineConfig, deps Deps, hooks EngineHooks) *Engine {
	def := DefaultEngineConfig()
	if cfg.AITickDivisor <= 0 {
		cfg.AITickDivisor = def.AITickDivisor
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = def.CommandCapacity
	}
	deps = deps.normalized()
	return &Engine{
		world:         w,
		population:    world.NewPopulation(cfg.Population),
		anticheat:     NewAntiCheat(cfg.AntiCheat),
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		config:        cfg,
		deps:          deps,
		hooks:         hooks,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Deps returns the injected dependencies.
func (e *Engine) Deps() Deps { return e.deps }

// SetSteerer installs the bot brain. A nil steerer leaves bots on their
// current heading.
func (e *Engine) SetSteerer(s Steerer) {
	e.mu.Lock()
	e.steerer = s
	e.mu.Unlock()
}

// Do runs fn with exclusive access to the world.
func (e *Engine) Do(fn func(w *world.World)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world)
}

// Pending reports the number of staged commands.
func (e *Engine) Pending() int {
	return e.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (e *Engine) Enqueue(cmd Command) (bool, string) {
	reason := ""
	var dropCount uint64
	e.queueMu.Lock()
	if e.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := e.perActorCount[cmd.ActorID]
		if count >= e.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = e.incrementDropLocked(cmd.ActorID)
		} else {
			e.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !e.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = e.incrementDropLocked(cmd.ActorID)
		} else if e.config.WarningStep > 0 {
			length := e.buffer.Len()
			if length >= e.config.WarningStep && length%e.config.WarningStep == 0 {
				e.queueMu.Unlock()
				if e.hooks.OnQueueWarning != nil {
					e.hooks.OnQueueWarning(length)
				}
				return true, ""
			}
		}
	}
	e.queueMu.Unlock()
	if reason != "" {
		e.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Step runs one simulation tick: staged commands, bot steering, physics,
// collisions and anomaly checks, all under the world lock.
func (e *Engine) Step(now time.Time) StepResult {
	commands := e.drainCommands()

	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.world

	e.applyCommands(commands)
	if e.steerer != nil && (w.Tick()+1)%uint64(e.config.AITickDivisor) == 0 {
		e.steerBots()
	}

	agents := w.LiveAgents()
	for _, a := range agents {
		advanceAgent(w, a, now)
	}
	advanceWanderingFood(w)

	outcome := EvaluateCollisions(w, now)
	ApplyOutcome(w, outcome, now)
	killed := outcome.KilledIDs()

	violations := 0
	for _, a := range agents {
		if !a.Alive || a.Bot() {
			continue
		}
		v, bad := e.anticheat.Observe(a.ID, a.Head(), now)
		if !bad {
			continue
		}
		violations++
		anticheat.MovementAnomaly(context.Background(), e.deps.Publisher, w.Tick(), a.EntityRef(), anticheat.MovementAnomalyPayload{
			Check:    v.Check,
			Observed: v.Observed,
			Limit:    v.Limit,
		}, nil)
		e.anticheat.Forget(a.ID)
		if w.KillAgent(a.ID, world.KillCause{Reason: world.ReasonAntiCheat}) {
			killed = append(killed, a.ID)
		}
	}

	return StepResult{
		Tick:       w.AdvanceTick(),
		Now:        now,
		Commands:   len(commands),
		Killed:     killed,
		Consumed:   len(outcome.Consumed),
		Violations: violations,
	}
}

// Manage runs the population pass under the world lock.
func (e *Engine) Manage(now time.Time) world.PopulationReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.population.Manage(e.world, now)

	live := make(map[string]struct{})
	for _, a := range e.world.LiveAgents() {
		live[a.ID] = struct{}{}
	}
	e.anticheat.Prune(live)
	return report
}

func (e *Engine) applyCommands(commands []Command) {
	for _, cmd := range commands {
		a, ok := e.world.Agent(cmd.ActorID)
		if !ok || !a.Alive {
			continue
		}
		switch cmd.Type {
		case CommandHeading:
			if cmd.Heading == nil || math.IsNaN(cmd.Heading.Angle) || math.IsInf(cmd.Heading.Angle, 0) {
				continue
			}
			a.TargetAngle = world.NormalizeAngle(cmd.Heading.Angle)
		case CommandBoost:
			if cmd.Boost == nil {
				continue
			}
			a.Boosting = cmd.Boost.Enabled
		case CommandPing:
			if cmd.Ping == nil || cmd.Ping.RTT < 0 {
				continue
			}
			a.Ping = cmd.Ping.RTT
		}
	}
}

func (e *Engine) steerBots() {
	view := NewView(e.world)
	for _, bot := range e.world.LiveAgents() {
		if !bot.Bot() {
			continue
		}
		decision := e.steerer.Steer(view, describeAgent(bot))
		if !math.IsNaN(decision.TargetAngle) && !math.IsInf(decision.TargetAngle, 0) {
			bot.TargetAngle = world.NormalizeAngle(decision.TargetAngle)
		}
		bot.Boosting = decision.Boosting
	}
}

func (e *Engine) drainCommands() []Command {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	commands := e.buffer.Drain()
	if len(e.perActorCount) > 0 {
		e.perActorCount = make(map[string]int)
	}
	return commands
}

func (e *Engine) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := e.dropCounts[actorID] + 1
	e.dropCounts[actorID] = count
	return count
}

func (e *Engine) reportDrop(reason string, cmd Command, count uint64) {
	if e.hooks.OnCommandDrop != nil {
		e.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		e.deps.Logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			e.config.PerActorLimit,
		)
	}
}

// ForgetActor clears throttling state for a departed actor and discards any
// commands it still has staged. It returns the number discarded.
func (e *Engine) ForgetActor(actorID string) int {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	delete(e.dropCounts, actorID)
	delete(e.perActorCount, actorID)
	return e.buffer.Discard(actorID)
}
