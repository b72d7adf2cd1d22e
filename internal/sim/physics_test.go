package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
)

var epoch = time.Unix(1_700_000_000, 0)

func newWorld(t *testing.T, mutate func(*world.Config)) *world.World {
	t.Helper()
	cfg := world.DefaultConfig()
	cfg.WorldRadius = 3000
	if mutate != nil {
		mutate(&cfg)
	}
	return world.New(cfg, world.Deps{Clock: logging.ClockFunc(func() time.Time { return epoch })})
}

func spawn(t *testing.T, w *world.World, id string, x, y, angle, length float64) *world.Agent {
	t.Helper()
	a, err := w.CreateAgent(world.AgentSpec{ID: id, Spawn: &world.Point{X: x, Y: y}, Length: length})
	require.NoError(t, err)
	a.Angle = angle
	a.TargetAngle = angle
	return a
}

func TestSpeedAndTurnRateFloors(t *testing.T) {
	cfg := world.DefaultConfig()
	assert.InDelta(t, 3.97, BaseSpeed(cfg, 30), 1e-9)
	assert.Equal(t, cfg.BaseSpeedMin, BaseSpeed(cfg, 50_000))
	assert.InDelta(t, 0.0985, TurnRate(cfg, 30), 1e-9)
	assert.Equal(t, cfg.TurnRateMin, TurnRate(cfg, 50_000))
}

func TestStepHeadingTakesShortestArc(t *testing.T) {
	assert.InDelta(t, 0.1, stepHeading(0, math.Pi/2, 0.1), 1e-9)
	assert.InDelta(t, -0.1, stepHeading(0, -math.Pi/2, 0.1), 1e-9)
	// Crossing the ±π seam turns through it rather than the long way round.
	assert.InDelta(t, -3.0, stepHeading(3, -3, 1), 1e-3)
	assert.InDelta(t, 0.05, stepHeading(0, 0.05, 0.1), 1e-9)
}

func TestBodyInvariantHoldsAcrossTicks(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 12)
	a.Boosting = true
	a.TargetAngle = math.Pi

	now := epoch
	for i := 0; i < 300; i++ {
		now = now.Add(time.Second / 60)
		if i == 150 {
			a.Length += 40
		}
		advanceAgent(w, a, now)

		require.LessOrEqual(t, float64(a.Body.Len()), a.Length)
		head, ok := a.Body.Front()
		require.True(t, ok)
		require.Equal(t, world.Point{X: a.X, Y: a.Y}, head)
		require.LessOrEqual(t, a.History.Len(), w.Config().HistorySize)
		for j := 1; j < a.History.Len(); j++ {
			require.True(t, a.History.At(j-1).At.After(a.History.At(j).At))
		}
	}
	assert.False(t, a.Boosting, "boost should switch off at the minimum length")
	assert.GreaterOrEqual(t, a.Length, w.Config().BoostMinLength)
}

func TestBoostDrainsAndDropsTrailFood(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 30)
	a.Boosting = true

	now := epoch
	for i := 0; i < w.Config().BoostDropInterval; i++ {
		now = now.Add(time.Second / 60)
		advanceAgent(w, a, now)
	}
	assert.InDelta(t, 30-0.05*float64(w.Config().BoostDropInterval), a.Length, 1e-9)
	require.Equal(t, 1, w.FoodCount())
	w.EachFood(func(f *world.Food) bool {
		assert.True(t, f.Expires)
		assert.Equal(t, world.TrailFoodType, f.Type)
		assert.Less(t, f.X, a.X)
		return true
	})
}

func TestBoostStopsAtMinimumLength(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 5.02)
	a.Boosting = true
	advanceAgent(w, a, epoch.Add(time.Millisecond))
	assert.False(t, a.Boosting)
	assert.Equal(t, w.Config().BoostMinLength, a.Length)
}

func TestSpeedEasesTowardTarget(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 30)
	a.Speed = 0
	advanceAgent(w, a, epoch.Add(time.Millisecond))
	assert.InDelta(t, BaseSpeed(w.Config(), 30)*w.Config().SpeedInterpolation, a.Speed, 1e-9)
	assert.InDelta(t, a.Speed, a.X, 1e-9)
}

func TestMagnetPullsFoodOnce(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 30)
	a.Speed = 0
	near := w.CreateFood(100, 0, 0)
	far := w.CreateFood(1000, 0, 0)
	a.Effects.Magnet = true

	advanceAgent(w, a, epoch.Add(time.Millisecond))
	assert.False(t, a.Effects.Magnet)
	assert.Less(t, near.X, 100.0)
	assert.Equal(t, 1000.0, far.X)
}

func TestWanderingFoodStaysInArena(t *testing.T) {
	w := newWorld(t, func(cfg *world.Config) { cfg.WorldRadius = 300 })
	f := w.CreateFood(250, 0, world.WanderingFoodType)
	f.Wander.Heading = 0
	for i := 0; i < 500; i++ {
		advanceWanderingFood(w)
		require.LessOrEqual(t, math.Hypot(f.X, f.Y), 300.0)
	}
}
