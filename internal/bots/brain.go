// Package bots provides the default steering brain for server-controlled
// agents. It only sees the world through sim.View.
package bots

import (
	"math"

	"snake-arena/server/internal/sim"
)

// Config tunes the brain. Distances are world units; ratios compare
// lengths.
type Config struct {
	VisionRange        float64
	ThreatRatio        float64
	FleeDistance       float64
	FleeDistanceLarge  float64
	LargeThreatRatio   float64
	AttackDistance     float64
	AttackAdvantage    float64
	SensorLengthFactor float64
	BoundaryBuffer     float64
	GoalWeight         float64
	AvoidanceWeight    float64
	SteeringThreshold  float64
}

func DefaultConfig() Config {
	return Config{
		VisionRange:        800,
		ThreatRatio:        1.2,
		FleeDistance:       300,
		FleeDistanceLarge:  500,
		LargeThreatRatio:   2,
		AttackDistance:     500,
		AttackAdvantage:    1.1,
		SensorLengthFactor: 5,
		BoundaryBuffer:     500,
		GoalWeight:         10,
		AvoidanceWeight:    0.5,
		SteeringThreshold:  0.01,
	}
}

// Mode names the branch a decision came from.
type Mode int

const (
	ModeFarm Mode = iota
	ModeFlee
	ModeAttack
)

func (m Mode) String() string {
	switch m {
	case ModeFlee:
		return "flee"
	case ModeAttack:
		return "attack"
	default:
		return "farm"
	}
}

// Brain is a priority selector: flee from a nearby larger agent, else chase
// a nearby smaller one, else farm the most valuable food in sight.
type Brain struct {
	cfg Config
}

var _ sim.Steerer = (*Brain)(nil)

func New(cfg Config) *Brain {
	def := DefaultConfig()
	if cfg.VisionRange <= 0 {
		cfg = def
	}
	return &Brain{cfg: cfg}
}

// Steer implements sim.Steerer.
func (b *Brain) Steer(view sim.View, self sim.AgentInfo) sim.Steering {
	steering, _ := b.Decide(view, self)
	return steering
}

// Decide returns the steering decision and the branch that produced it.
func (b *Brain) Decide(view sim.View, self sim.AgentInfo) (sim.Steering, Mode) {
	neighbours := view.NearbyAgents(self.X, self.Y, b.cfg.VisionRange)

	if threat, ok := b.threat(self, neighbours); ok {
		goal := vec{self.X - threat.X, self.Y - threat.Y}
		return b.steer(view, self, goal, true), ModeFlee
	}
	if prey, dist, ok := b.prey(self, neighbours); ok {
		lead := 0.0
		if self.Speed > 0 {
			lead = dist / self.Speed
		}
		px := prey.X + math.Cos(prey.Angle)*prey.Speed*lead
		py := prey.Y + math.Sin(prey.Angle)*prey.Speed*lead
		return b.steer(view, self, vec{px - self.X, py - self.Y}, true), ModeAttack
	}
	return b.steer(view, self, b.farmGoal(view, self), false), ModeFarm
}

func (b *Brain) threat(self sim.AgentInfo, others []sim.AgentInfo) (sim.AgentInfo, bool) {
	var nearest sim.AgentInfo
	best := math.Inf(1)
	for _, other := range others {
		if other.ID == self.ID {
			continue
		}
		d := math.Hypot(self.X-other.X, self.Y-other.Y)
		if other.Length > self.Length*b.cfg.ThreatRatio && d < best {
			best = d
			nearest = other
		}
	}
	if math.IsInf(best, 1) {
		return sim.AgentInfo{}, false
	}
	limit := b.cfg.FleeDistance + self.Radius
	if self.Length > 0 && nearest.Length/self.Length > b.cfg.LargeThreatRatio {
		limit = b.cfg.FleeDistanceLarge + self.Radius
	}
	return nearest, best < limit
}

func (b *Brain) prey(self sim.AgentInfo, others []sim.AgentInfo) (sim.AgentInfo, float64, bool) {
	var nearest sim.AgentInfo
	best := math.Inf(1)
	for _, other := range others {
		if other.ID == self.ID {
			continue
		}
		d := math.Hypot(self.X-other.X, self.Y-other.Y)
		if other.Length < self.Length && d < best {
			best = d
			nearest = other
		}
	}
	if math.IsInf(best, 1) || best >= b.cfg.AttackDistance {
		return sim.AgentInfo{}, 0, false
	}
	if self.Length <= nearest.Length*b.cfg.AttackAdvantage {
		return sim.AgentInfo{}, 0, false
	}
	return nearest, best, true
}

// farmGoal points at the food with the best score per distance, or straight
// ahead when nothing is in sight.
func (b *Brain) farmGoal(view sim.View, self sim.AgentInfo) vec {
	bestScore := -1.0
	var goal vec
	found := false
	for _, f := range view.NearbyFood(self.X, self.Y, b.cfg.VisionRange) {
		d := math.Hypot(self.X-f.X, self.Y-f.Y)
		if h := f.Score / (d + 1); h > bestScore {
			bestScore = h
			goal = vec{f.X - self.X, f.Y - self.Y}
			found = true
		}
	}
	if !found {
		return vec{math.Cos(self.Angle), math.Sin(self.Angle)}
	}
	return goal
}

type sensor struct {
	offset float64
	weight float64
}

var sensors = [...]sensor{
	{offset: 0, weight: 1},
	{offset: math.Pi / 4, weight: 0.5},
	{offset: -math.Pi / 4, weight: 0.5},
}

// steer blends the goal with boundary and body avoidance. Any avoidance
// forces a boost.
func (b *Brain) steer(view sim.View, self sim.AgentInfo, goal vec, boost bool) sim.Steering {
	var avoid vec

	radius := view.WorldRadius()
	if dist := math.Hypot(self.X, self.Y); dist > radius-b.cfg.BoundaryBuffer && dist > 0 {
		avoid = vec{-self.X / dist, -self.Y / dist}
	}

	sensorLength := self.Radius * b.cfg.SensorLengthFactor
	others := view.NearbyAgents(self.X, self.Y, sensorLength*2)
	for _, s := range sensors {
		angle := self.Angle + s.offset
		ex := self.X + math.Cos(angle)*sensorLength
		ey := self.Y + math.Sin(angle)*sensorLength
		for _, other := range others {
			if other.ID == self.ID {
				continue
			}
			for _, seg := range other.Segments {
				if math.Hypot(ex-seg.X, ey-seg.Y) < other.Radius {
					avoid.x -= math.Cos(angle) * s.weight
					avoid.y -= math.Sin(angle) * s.weight
				}
			}
		}
	}

	goal = goal.unit()
	avoidMag := avoid.len()
	avoid = avoid.unit()
	final := vec{
		goal.x*b.cfg.GoalWeight + avoid.x*b.cfg.AvoidanceWeight,
		goal.y*b.cfg.GoalWeight + avoid.y*b.cfg.AvoidanceWeight,
	}

	out := sim.Steering{TargetAngle: self.Angle, Boosting: boost}
	if final.len() > b.cfg.SteeringThreshold {
		out.TargetAngle = math.Atan2(final.y, final.x)
	}
	if avoidMag > b.cfg.SteeringThreshold {
		out.Boosting = true
	}
	return out
}

type vec struct{ x, y float64 }

func (v vec) len() float64 { return math.Hypot(v.x, v.y) }

func (v vec) unit() vec {
	l := v.len()
	if l == 0 {
		return v
	}
	return vec{v.x / l, v.y / l}
}
