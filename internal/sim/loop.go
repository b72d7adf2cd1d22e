package sim

import (
	"context"
	"time"

	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
	"snake-arena/server/logging/simulation"
)

// LoopConfig sets the rates of the three fixed-interval jobs.
type LoopConfig struct {
	TickRate           int
	NetworkRate        int
	ManagementInterval time.Duration
	// AlarmStreak consecutive overruns at AlarmRatio or worse raise an alarm.
	AlarmStreak uint64
	AlarmRatio  float64
}

// DefaultLoopConfig returns 60 Hz simulation, 30 Hz network and a 5 s
// management pass.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:           60,
		NetworkRate:        30,
		ManagementInterval: 5 * time.Second,
		AlarmStreak:        30,
		AlarmRatio:         2,
	}
}

// LoopHooks receive job results. Network runs on the loop goroutine and is
// responsible for taking the world lock through Engine.Do.
type LoopHooks struct {
	AfterStep   func(StepResult, time.Duration)
	Network     func(now time.Time)
	AfterManage func(world.PopulationReport)
	// OnAlarm fires once per sustained overrun streak.
	OnAlarm func()
}

// Loop drives the simulation, network and management jobs from a single
// goroutine so they never interleave.
type Loop struct {
	engine *Engine
	config LoopConfig
	hooks  LoopHooks
	clock  logging.Clock
	pub    logging.Publisher

	streak  uint64
	alarmed bool
}

// NewLoop binds a loop to an engine.
func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	def := DefaultLoopConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.NetworkRate <= 0 {
		cfg.NetworkRate = def.NetworkRate
	}
	if cfg.ManagementInterval <= 0 {
		cfg.ManagementInterval = def.ManagementInterval
	}
	if cfg.AlarmStreak == 0 {
		cfg.AlarmStreak = def.AlarmStreak
	}
	if cfg.AlarmRatio <= 0 {
		cfg.AlarmRatio = def.AlarmRatio
	}
	deps := engine.Deps()
	return &Loop{engine: engine, config: cfg, hooks: hooks, clock: deps.Clock, pub: deps.Publisher}
}

// Config returns the normalized loop configuration.
func (l *Loop) Config() LoopConfig { return l.config }

// Run drives the jobs until ctx is cancelled. A management pass runs
// immediately so the world is populated before the first tick.
func (l *Loop) Run(ctx context.Context) error {
	simTicker := time.NewTicker(time.Second / time.Duration(l.config.TickRate))
	defer simTicker.Stop()
	netTicker := time.NewTicker(time.Second / time.Duration(l.config.NetworkRate))
	defer netTicker.Stop()
	manageTicker := time.NewTicker(l.config.ManagementInterval)
	defer manageTicker.Stop()

	l.Manage()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-simTicker.C:
			l.Tick()
		case <-netTicker.C:
			if l.hooks.Network != nil {
				l.hooks.Network(l.clock.Now())
			}
		case <-manageTicker.C:
			l.Manage()
		}
	}
}

// Tick runs one simulation step and accounts for its budget.
func (l *Loop) Tick() StepResult {
	start := l.clock.Now()
	result := l.engine.Step(start)
	duration := l.clock.Now().Sub(start)
	l.account(result.Tick, duration)
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result, duration)
	}
	return result
}

// Manage runs one population pass.
func (l *Loop) Manage() world.PopulationReport {
	report := l.engine.Manage(l.clock.Now())
	if l.hooks.AfterManage != nil {
		l.hooks.AfterManage(report)
	}
	return report
}

func (l *Loop) account(tick uint64, duration time.Duration) {
	budget := time.Second / time.Duration(l.config.TickRate)
	if duration <= budget {
		l.streak = 0
		l.alarmed = false
		return
	}
	l.streak++
	ratio := float64(duration) / float64(budget)
	ctx := context.Background()
	simulation.TickBudgetOverrun(ctx, l.pub, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: duration.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         l.streak,
	}, nil)
	if l.alarmed || l.streak < l.config.AlarmStreak || ratio < l.config.AlarmRatio {
		return
	}
	l.alarmed = true
	simulation.TickBudgetAlarm(ctx, l.pub, tick, simulation.TickBudgetAlarmPayload{
		DurationMillis:  duration.Milliseconds(),
		BudgetMillis:    budget.Milliseconds(),
		Ratio:           ratio,
		Streak:          l.streak,
		ResyncScheduled: l.hooks.OnAlarm != nil,
		ThresholdRatio:  l.config.AlarmRatio,
		ThresholdStreak: l.config.AlarmStreak,
	}, nil)
	if l.hooks.OnAlarm != nil {
		l.hooks.OnAlarm()
	}
}
