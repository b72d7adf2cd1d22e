package sim

import (
	"math"

	"snake-arena/server/internal/spatial"
	"snake-arena/server/internal/world"
)

// AgentInfo is a read-only copy of an agent handed to steering code.
type AgentInfo struct {
	ID       string
	X        float64
	Y        float64
	Angle    float64
	Speed    float64
	Length   float64
	Radius   float64
	Boosting bool
	// Segments samples the body, head first.
	Segments []world.Point
}

// FoodInfo is a read-only copy of a food item.
type FoodInfo struct {
	ID    string
	X     float64
	Y     float64
	Score float64
}

// View answers spatial questions for steering code without exposing the
// mutable world.
type View interface {
	WorldRadius() float64
	NearbyAgents(x, y, radius float64) []AgentInfo
	NearbyFood(x, y, radius float64) []FoodInfo
}

// Steering is a steerer's decision for one bot.
type Steering struct {
	TargetAngle float64
	Boosting    bool
}

// Steerer decides where a bot heads next.
type Steerer interface {
	Steer(view View, self AgentInfo) Steering
}

// SteererFunc adapts a function to Steerer.
type SteererFunc func(view View, self AgentInfo) Steering

func (f SteererFunc) Steer(view View, self AgentInfo) Steering { return f(view, self) }

const segmentSampleStride = 3

type worldView struct {
	w *world.World
}

// NewView wraps a world for read-only queries. Callers hold the world lock.
func NewView(w *world.World) View {
	return worldView{w: w}
}

func (v worldView) WorldRadius() float64 { return v.w.Config().WorldRadius }

func (v worldView) NearbyAgents(x, y, radius float64) []AgentInfo {
	agents := v.w.NearbyAgents(x, y, radius)
	out := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		out = append(out, describeAgent(a))
	}
	return out
}

func (v worldView) NearbyFood(x, y, radius float64) []FoodInfo {
	var out []FoodInfo
	for _, f := range v.w.QueryFood(spatial.RectAround(x, y, radius)) {
		if math.Hypot(f.X-x, f.Y-y) > radius {
			continue
		}
		out = append(out, FoodInfo{ID: f.ID, X: f.X, Y: f.Y, Score: f.Score})
	}
	return out
}

func describeAgent(a *world.Agent) AgentInfo {
	info := AgentInfo{
		ID:       a.ID,
		X:        a.X,
		Y:        a.Y,
		Angle:    a.Angle,
		Speed:    a.Speed,
		Length:   a.Length,
		Radius:   a.Radius,
		Boosting: a.Boosting,
		Segments: make([]world.Point, 0, a.Body.Len()/segmentSampleStride+1),
	}
	for i := 0; i < a.Body.Len(); i += segmentSampleStride {
		info.Segments = append(info.Segments, a.Body.At(i))
	}
	return info
}
