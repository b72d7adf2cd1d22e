package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/internal/ring"
	"snake-arena/server/internal/world"
)

func history(samples ...world.Sample) *ring.Deque[world.Sample] {
	d := ring.NewDeque[world.Sample](len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		d.PushFront(samples[i])
	}
	return d
}

func TestRewindHeadInterpolatesAndClamps(t *testing.T) {
	h := history(
		world.Sample{X: 20, Y: 0, At: epoch.Add(2 * time.Second)},
		world.Sample{X: 10, Y: 10, At: epoch.Add(time.Second)},
		world.Sample{X: 0, Y: 0, At: epoch},
	)

	p, ok := RewindHead(h, epoch.Add(1500*time.Millisecond))
	require.True(t, ok)
	assert.InDelta(t, 15, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)

	p, _ = RewindHead(h, epoch.Add(-time.Hour))
	assert.Equal(t, world.Point{}, p)
	p, _ = RewindHead(h, epoch.Add(time.Hour))
	assert.Equal(t, world.Point{X: 20}, p)

	_, ok = RewindHead(ring.NewDeque[world.Sample](1), epoch)
	assert.False(t, ok)
}

func TestRewindHeadStaysBetweenBracketingSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	samples := make([]world.Sample, 30)
	for i := range samples {
		samples[i] = world.Sample{X: rng.Float64() * 100, Y: rng.Float64() * 100, At: epoch.Add(time.Duration(29-i) * 16 * time.Millisecond)}
	}
	h := history(samples...)
	for q := 0; q < 200; q++ {
		at := epoch.Add(time.Duration(rng.Int63n(int64(29 * 16 * time.Millisecond))))
		p, ok := RewindHead(h, at)
		require.True(t, ok)
		var newer, older world.Sample
		for i := 0; i < len(samples)-1; i++ {
			if !at.After(samples[i].At) && !at.Before(samples[i+1].At) {
				newer, older = samples[i], samples[i+1]
				break
			}
		}
		assert.GreaterOrEqual(t, p.X, math.Min(newer.X, older.X)-1e-9)
		assert.LessOrEqual(t, p.X, math.Max(newer.X, older.X)+1e-9)
		assert.GreaterOrEqual(t, p.Y, math.Min(newer.Y, older.Y)-1e-9)
		assert.LessOrEqual(t, p.Y, math.Max(newer.Y, older.Y)+1e-9)
	}
}

func TestHeadOnLargerSurvives(t *testing.T) {
	w := newWorld(t, nil)
	spawn(t, w, "a", 0, 0, 0, 100)
	spawn(t, w, "b", 15, 0, math.Pi, 50)

	out := EvaluateCollisions(w, epoch)
	assert.Equal(t, []string{"b"}, out.KilledIDs())
	assert.Equal(t, "a", out.Kills["b"].KillerID)
	assert.Equal(t, world.ReasonHeadOn, out.Kills["b"].Reason)
}

func TestHeadOnEqualLengthsKillBoth(t *testing.T) {
	w := newWorld(t, nil)
	spawn(t, w, "a", 0, 0, 0, 40)
	spawn(t, w, "b", 15, 0, math.Pi, 40)

	out := EvaluateCollisions(w, epoch)
	assert.Equal(t, []string{"a", "b"}, out.KilledIDs())
}

func TestHeadToBodyKillsHeadOwner(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, math.Pi/2, 500)
	b := spawn(t, w, "b", -100, 8, 0, 100)
	b.Body.Clear()
	for x := -100.0; x <= 100; x += 4 {
		b.Body.PushFront(world.Point{X: x, Y: 8})
	}
	b.X, b.Y = 100, 8
	b.History = history(world.Sample{X: 100, Y: 8, At: epoch})
	w.ReindexAgent(b)

	out := EvaluateCollisions(w, epoch)
	assert.Equal(t, []string{"a"}, out.KilledIDs())
	assert.Equal(t, world.KillCause{Reason: world.ReasonBody, KillerID: "b"}, out.Kills["a"])
	assert.Greater(t, a.Length, b.Length, "length does not protect the head owner")
}

func TestSelfCollisionExcluded(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 100)
	a.Body.Clear()
	for i := 0; i < 60; i++ {
		theta := float64(i) * 0.2
		a.Body.PushFront(world.Point{X: 5 * math.Cos(theta), Y: 5 * math.Sin(theta)})
	}
	a.Body.PushFront(world.Point{})
	w.ReindexAgent(a)

	out := EvaluateCollisions(w, epoch)
	assert.Empty(t, out.Kills)
}

func TestSharedFoodConsumedOnce(t *testing.T) {
	w := newWorld(t, nil)
	spawn(t, w, "a", 0, 0, 0, 30)
	spawn(t, w, "b", 0, 30, math.Pi, 30)
	f := w.CreateFood(0, 15, 0)
	foodID := f.ID

	out := EvaluateCollisions(w, epoch)
	assert.Empty(t, out.Kills)
	assert.Equal(t, []string{foodID}, out.Consumed)
	require.Contains(t, out.Growth, "a")
	assert.NotContains(t, out.Growth, "b")

	ApplyOutcome(w, out, epoch)
	assert.Zero(t, w.FoodCount())
	a, _ := w.Agent("a")
	b, _ := w.Agent("b")
	assert.Equal(t, 31.0, a.Length)
	assert.Equal(t, 30.0, b.Length)
}

func TestGrowthIsMonotonicAndRadiusCapped(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 30)
	cfg := w.Config()

	prevLength, prevRadius := a.Length, a.Radius
	for _, score := range []float64{1, 25, 1000, 100000} {
		ApplyOutcome(w, Outcome{Growth: map[string]Growth{"a": {Score: score, Color: a.Color}}}, epoch)
		assert.Greater(t, a.Length, prevLength)
		assert.GreaterOrEqual(t, a.Radius, prevRadius)
		assert.LessOrEqual(t, a.Radius, cfg.MaxRadius)
		prevLength, prevRadius = a.Length, a.Radius
	}
	assert.Equal(t, cfg.MaxRadius, a.Radius)
}

func TestBoundaryKillsHeadAndStrayBody(t *testing.T) {
	w := newWorld(t, nil)
	r := w.Config().WorldRadius
	spawn(t, w, "head", r-5, 0, 0, 30)
	body := spawn(t, w, "body", 0, r-200, 0, 30)
	body.Body.PushFront(world.Point{X: 0, Y: r + 1})
	body.Body.PushFront(world.Point{X: 0, Y: r - 200})
	spawn(t, w, "safe", 0, 0, 0, 30)

	out := EvaluateCollisions(w, epoch)
	assert.Equal(t, []string{"body", "head"}, out.KilledIDs())
	assert.Equal(t, world.ReasonBoundary, out.Kills["head"].Reason)
}

func TestLagCompensationUsesRewoundHead(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 100)
	b := spawn(t, w, "b", 200, 0, 0, 30)
	b.History = history(
		world.Sample{X: 200, Y: 0, At: epoch},
		world.Sample{X: 10, Y: 0, At: epoch.Add(-100 * time.Millisecond)},
	)

	assert.Empty(t, EvaluateCollisions(w, epoch).Kills)

	a.Ping = 100 * time.Millisecond
	out := EvaluateCollisions(w, epoch)
	assert.Equal(t, []string{"b"}, out.KilledIDs())
}

func TestPowerupClaimedOnceAndActivated(t *testing.T) {
	w := newWorld(t, nil)
	spawn(t, w, "a", 0, 0, 0, 30)
	spawn(t, w, "b", 0, 30, math.Pi, 30)
	p, err := w.CreatePowerup(world.PowerupSpeed, 0, 15)
	require.NoError(t, err)

	out := EvaluateCollisions(w, epoch)
	require.Len(t, out.Pickups, 1)
	assert.Equal(t, Pickup{AgentID: "a", PowerupID: p.ID}, out.Pickups[0])

	ApplyOutcome(w, out, epoch)
	a, _ := w.Agent("a")
	assert.True(t, a.Effects.SpeedActive(epoch.Add(time.Second)))
	assert.Zero(t, w.PowerupCount())
}

func TestApplyOutcomeKillsAndSkipsGrowthForDead(t *testing.T) {
	w := newWorld(t, nil)
	a := spawn(t, w, "a", 0, 0, 0, 30)
	ApplyOutcome(w, Outcome{
		Kills:  map[string]world.KillCause{"a": {Reason: world.ReasonBody}},
		Growth: map[string]Growth{"a": {Score: 10}},
	}, epoch)
	assert.False(t, a.Alive)
	assert.Equal(t, 30.0, a.Length)
}
