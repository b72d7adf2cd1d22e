package delta

import (
	"math"
	"time"

	"snake-arena/server/internal/world"
)

// AgentState is the wire view of an agent. Body sequences are never sent.
type AgentState struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Length   float64 `json:"length"`
	Radius   float64 `json:"radius"`
	Boosting bool    `json:"boosting"`
	Ping     int64   `json:"ping"`
	Color    string  `json:"color"`
	Bot      bool    `json:"bot,omitempty"`
}

// FoodState is the wire view of a food item.
type FoodState struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Score  float64 `json:"score"`
	Type   int     `json:"type"`
	Color  string  `json:"color"`
	Glow   bool    `json:"glow,omitempty"`
}

// PowerupState is the wire view of a powerup.
type PowerupState struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Kind   string  `json:"kind"`
	Color  string  `json:"color"`
}

// Frame is an immutable copy of the visible world taken once per network
// tick and shared by every viewer's diff.
type Frame struct {
	Tick     uint64
	Time     time.Time
	Agents   map[string]AgentState
	Food     map[string]FoodState
	Powerups map[string]PowerupState
}

// Round keeps two decimal places so sub-centiunit jitter never produces an
// update.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Capture copies the living agents, food and powerups out of w. Callers
// hold the world lock.
func Capture(w *world.World) *Frame {
	frame := &Frame{
		Tick:     w.Tick(),
		Time:     w.Now(),
		Agents:   make(map[string]AgentState),
		Food:     make(map[string]FoodState, w.FoodCount()),
		Powerups: make(map[string]PowerupState, w.PowerupCount()),
	}
	for _, a := range w.LiveAgents() {
		frame.Agents[a.ID] = AgentState{
			ID:       a.ID,
			Name:     a.Name,
			X:        Round(a.X),
			Y:        Round(a.Y),
			Angle:    Round(a.Angle),
			Length:   Round(a.Length),
			Radius:   Round(a.Radius),
			Boosting: a.Boosting,
			Ping:     a.Ping.Milliseconds(),
			Color:    a.Color.String(),
			Bot:      a.Bot(),
		}
	}
	w.EachFood(func(f *world.Food) bool {
		frame.Food[f.ID] = FoodState{
			ID:     f.ID,
			X:      Round(f.X),
			Y:      Round(f.Y),
			Radius: Round(f.Radius),
			Score:  f.Score,
			Type:   f.Type,
			Color:  f.Color.String(),
			Glow:   f.Glow,
		}
		return true
	})
	for _, p := range w.Powerups() {
		frame.Powerups[p.ID] = PowerupState{
			ID:     p.ID,
			X:      Round(p.X),
			Y:      Round(p.Y),
			Radius: Round(p.Radius),
			Kind:   string(p.Kind),
			Color:  p.Color.String(),
		}
	}
	return frame
}
