package world

import (
	"fmt"
	"math"
	"time"

	"snake-arena/server/internal/ring"
	"snake-arena/server/internal/spatial"
)

// Kind distinguishes who steers an agent.
type Kind int

const (
	KindHuman Kind = iota
	KindBot
)

func (k Kind) String() string {
	if k == KindBot {
		return "bot"
	}
	return "human"
}

// Point is a world position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is a timestamped head position kept for lag compensation.
type Sample struct {
	X  float64
	Y  float64
	At time.Time
}

// RGB is an 8-bit colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Blend moves c toward other by factor in [0, 1].
func (c RGB) Blend(other RGB, factor float64) RGB {
	factor = math.Max(0, math.Min(1, factor))
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-factor) + float64(b)*factor))
	}
	return RGB{R: mix(c.R, other.R), G: mix(c.G, other.G), B: mix(c.B, other.B)}
}

// Effects tracks powerup state on an agent.
type Effects struct {
	// Magnet is a one-shot pull applied on the next simulation tick.
	Magnet     bool
	SpeedUntil time.Time
}

// SpeedActive reports whether a timed speed boost covers now.
func (e Effects) SpeedActive(now time.Time) bool {
	return !e.SpeedUntil.IsZero() && now.Before(e.SpeedUntil)
}

// Collider is any agent-index record: an agent head or one of its body chunks.
type Collider interface {
	spatial.Entity
	OwnerAgent() *Agent
}

// Agent is a growing snake.
type Agent struct {
	spatial.Membership

	ID   string
	Name string
	Kind Kind

	X           float64
	Y           float64
	Angle       float64
	TargetAngle float64
	Speed       float64
	TurnRate    float64
	Boosting    bool
	Length      float64
	Radius      float64
	Color       RGB
	Ping        time.Duration
	Alive       bool

	// Body holds recent head positions, front is the head.
	Body *ring.Deque[Point]
	// History holds timestamped head samples, newest first.
	History *ring.Deque[Sample]

	Effects    Effects
	BoostTicks uint64
	SpawnedAt  time.Time

	chunks []*BodyChunk
}

// Bounds implements spatial.Entity for the head circle.
func (a *Agent) Bounds() spatial.Rect {
	return spatial.RectAround(a.X, a.Y, a.Radius)
}

// OwnerAgent implements Collider.
func (a *Agent) OwnerAgent() *Agent { return a }

// Bot reports whether the agent is AI controlled.
func (a *Agent) Bot() bool { return a.Kind == KindBot }

// Head returns the current head position.
func (a *Agent) Head() Point { return Point{X: a.X, Y: a.Y} }

// Score is the integer score shown to players.
func (a *Agent) Score() int { return int(math.Floor(a.Length)) }

// BodyChunk registers a run of consecutive body segments in the agent index.
type BodyChunk struct {
	spatial.Membership

	Owner  *Agent
	Start  int
	End    int
	bounds spatial.Rect
}

// Bounds implements spatial.Entity.
func (c *BodyChunk) Bounds() spatial.Rect { return c.bounds }

// OwnerAgent implements Collider.
func (c *BodyChunk) OwnerAgent() *Agent { return c.Owner }

// Wander moves rare food around the arena.
type Wander struct {
	Heading float64
	Speed   float64
}

// Food is a consumable item.
type Food struct {
	spatial.Membership

	ID        string
	X         float64
	Y         float64
	Radius    float64
	Score     float64
	Type      int
	Color     RGB
	Glow      bool
	Effect    string
	SpawnedAt time.Time
	Expires   bool
	Wander    *Wander
}

// Bounds implements spatial.Entity.
func (f *Food) Bounds() spatial.Rect {
	return spatial.RectAround(f.X, f.Y, f.Radius)
}

// PowerupKind tags the effect a powerup grants.
type PowerupKind string

const (
	// PowerupMagnet pulls nearby food toward the head once.
	PowerupMagnet PowerupKind = "magnet"
	// PowerupSpeed multiplies speed for a fixed duration.
	PowerupSpeed PowerupKind = "speed"
)

// Powerup is a pickup granting an effect.
type Powerup struct {
	ID       string
	X        float64
	Y        float64
	Radius   float64
	Kind     PowerupKind
	Color    RGB
	Duration time.Duration
}
