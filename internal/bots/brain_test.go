package bots

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/internal/sim"
	"snake-arena/server/internal/world"
)

type fakeView struct {
	radius float64
	agents []sim.AgentInfo
	food   []sim.FoodInfo
}

func (v fakeView) WorldRadius() float64 { return v.radius }

func (v fakeView) NearbyAgents(x, y, radius float64) []sim.AgentInfo {
	var out []sim.AgentInfo
	for _, a := range v.agents {
		if math.Hypot(a.X-x, a.Y-y) <= radius {
			out = append(out, a)
		}
	}
	return out
}

func (v fakeView) NearbyFood(x, y, radius float64) []sim.FoodInfo {
	var out []sim.FoodInfo
	for _, f := range v.food {
		if math.Hypot(f.X-x, f.Y-y) <= radius {
			out = append(out, f)
		}
	}
	return out
}

func bot(x, y, length float64) sim.AgentInfo {
	return sim.AgentInfo{ID: "bot", X: x, Y: y, Angle: math.Pi / 2, Speed: 3, Length: length, Radius: 10}
}

func TestFarmPrefersScorePerDistance(t *testing.T) {
	self := bot(0, 0, 50)
	view := fakeView{
		radius: 5000,
		agents: []sim.AgentInfo{self},
		food: []sim.FoodInfo{
			{ID: "near-small", X: 0, Y: -100, Score: 1},
			{ID: "far-rich", X: 300, Y: 0, Score: 10},
		},
	}

	steering, mode := New(DefaultConfig()).Decide(view, self)
	assert.Equal(t, ModeFarm, mode)
	assert.InDelta(t, 0, steering.TargetAngle, 1e-9)
	assert.False(t, steering.Boosting)
}

func TestFarmWandersWithoutFood(t *testing.T) {
	self := bot(0, 0, 50)
	steering, mode := New(DefaultConfig()).Decide(fakeView{radius: 5000}, self)
	assert.Equal(t, ModeFarm, mode)
	assert.InDelta(t, self.Angle, steering.TargetAngle, 1e-9)
}

func TestFleeFromLargerAgent(t *testing.T) {
	self := bot(0, 0, 50)
	threat := sim.AgentInfo{ID: "big", X: 100, Y: 0, Length: 100, Radius: 20}
	view := fakeView{radius: 5000, agents: []sim.AgentInfo{self, threat}}

	steering, mode := New(DefaultConfig()).Decide(view, self)
	assert.Equal(t, ModeFlee, mode)
	assert.InDelta(t, math.Pi, math.Abs(steering.TargetAngle), 1e-9)
	assert.True(t, steering.Boosting)
}

func TestSlightlyLargerAgentIsNotAThreat(t *testing.T) {
	self := bot(0, 0, 50)
	peer := sim.AgentInfo{ID: "peer", X: 100, Y: 0, Length: 55, Radius: 10}
	_, mode := New(DefaultConfig()).Decide(fakeView{radius: 5000, agents: []sim.AgentInfo{self, peer}}, self)
	assert.Equal(t, ModeFarm, mode)
}

func TestAttackSmallerAgent(t *testing.T) {
	self := bot(0, 0, 50)
	prey := sim.AgentInfo{ID: "small", X: 0, Y: 200, Length: 20, Radius: 10}
	view := fakeView{radius: 5000, agents: []sim.AgentInfo{self, prey}}

	steering, mode := New(DefaultConfig()).Decide(view, self)
	require.Equal(t, ModeAttack, mode)
	assert.InDelta(t, math.Pi/2, steering.TargetAngle, 1e-9)
	assert.True(t, steering.Boosting)
}

func TestBoundaryAvoidanceForcesBoost(t *testing.T) {
	self := bot(4900, 0, 50)
	self.Angle = 0
	steering, mode := New(DefaultConfig()).Decide(fakeView{radius: 5000}, self)
	assert.Equal(t, ModeFarm, mode)
	assert.True(t, steering.Boosting)
}

func TestBodySensorSteersAway(t *testing.T) {
	self := bot(0, 0, 50)
	self.Angle = 0
	wall := sim.AgentInfo{
		ID:       "wall",
		X:        60,
		Y:        80,
		Length:   60,
		Radius:   15,
		Segments: []world.Point{{X: 50, Y: 0}},
	}
	view := fakeView{radius: 5000, agents: []sim.AgentInfo{self, wall}}

	steering, _ := New(DefaultConfig()).Decide(view, self)
	assert.True(t, steering.Boosting)
}

func TestSteerImplementsSteerer(t *testing.T) {
	var steerer sim.Steerer = New(Config{})
	self := bot(0, 0, 50)
	steering := steerer.Steer(fakeView{radius: 5000}, self)
	assert.False(t, math.IsNaN(steering.TargetAngle))
}
