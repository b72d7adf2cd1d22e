package world

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/internal/spatial"
	"snake-arena/server/logging"
)

var testEpoch = time.Unix(1_700_000_000, 0)

func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorldRadius = 2000
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, Deps{Clock: logging.ClockFunc(func() time.Time { return testEpoch })})
}

func TestCreateAgentRejectsDuplicateID(t *testing.T) {
	w := newTestWorld(t, nil)
	_, err := w.CreateAgent(AgentSpec{ID: "a", Name: "Ada"})
	require.NoError(t, err)

	_, err = w.CreateAgent(AgentSpec{ID: "a"})
	assert.ErrorIs(t, err, ErrAgentExists)
}

func TestCreateAgentInitialState(t *testing.T) {
	w := newTestWorld(t, nil)
	a, err := w.CreateAgent(AgentSpec{ID: "a", Spawn: &Point{X: 10, Y: -5}})
	require.NoError(t, err)

	cfg := w.Config()
	assert.True(t, a.Alive)
	assert.Equal(t, cfg.InitialLength, a.Length)
	assert.Equal(t, 1, a.Body.Len())
	assert.Equal(t, 1, a.History.Len())
	head, _ := a.Body.Front()
	assert.Equal(t, Point{X: 10, Y: -5}, head)
	assert.True(t, a.Indexed())
	assert.Equal(t, []*Agent{a}, w.NearbyAgents(10, -5, 1))
}

func TestRemoveFoodRecyclesWithFreshID(t *testing.T) {
	w := newTestWorld(t, nil)
	f := w.CreateFood(1, 1, 2)
	oldID := f.ID
	require.True(t, w.RemoveFood(oldID))
	assert.False(t, w.RemoveFood(oldID))
	assert.Empty(t, w.QueryFood(spatial.RectAround(1, 1, 10)))

	again := w.CreateFood(5, 5, 0)
	assert.Same(t, f, again)
	assert.NotEqual(t, oldID, again.ID)
	assert.Equal(t, FoodTypes[0].Score, again.Score)
	assert.Equal(t, 1, w.FoodCount())
}

func TestCreateFoodClampsType(t *testing.T) {
	w := newTestWorld(t, nil)
	assert.Equal(t, 0, w.CreateFood(0, 0, -3).Type)
	f := w.CreateFood(0, 0, 99)
	assert.Equal(t, WanderingFoodType, f.Type)
	assert.NotNil(t, f.Wander)
}

func TestReindexAgentRegistersBodyChunks(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) { cfg.BodyChunkSize = 4 })
	a, err := w.CreateAgent(AgentSpec{ID: "a", Spawn: &Point{}})
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		a.X = float64(i) * 50
		a.Body.PushFront(Point{X: a.X, Y: 0})
	}
	w.ReindexAgent(a)
	require.Len(t, a.chunks, 3)

	// The tail sits at the origin, far from the head.
	var chunkHit bool
	for _, c := range w.QueryColliders(spatial.RectAround(0, 0, 1)) {
		if chunk, ok := c.(*BodyChunk); ok && chunk.Owner == a {
			chunkHit = true
		}
	}
	assert.True(t, chunkHit)

	a.Body.TrimTo(2)
	w.ReindexAgent(a)
	assert.Len(t, a.chunks, 1)
	assert.Empty(t, w.QueryColliders(spatial.RectAround(0, 0, 1)))
}

func TestKillAgentScattersFoodAndFiresHookOnce(t *testing.T) {
	w := newTestWorld(t, nil)
	var deaths []KillCause
	w.SetDeathHook(func(_ *Agent, cause KillCause) { deaths = append(deaths, cause) })

	a, err := w.CreateAgent(AgentSpec{ID: "a", Spawn: &Point{}, Length: 40})
	require.NoError(t, err)
	for i := 1; i < 40; i++ {
		a.Body.PushFront(Point{X: float64(i) * 4})
	}
	w.ReindexAgent(a)

	require.True(t, w.KillAgent("a", KillCause{Reason: ReasonBoundary}))
	assert.False(t, w.KillAgent("a", KillCause{Reason: ReasonBoundary}))
	assert.False(t, w.KillAgent("missing", KillCause{}))

	assert.False(t, a.Alive)
	assert.False(t, a.Indexed())
	assert.Empty(t, w.NearbyAgents(0, 0, 500))
	require.Len(t, deaths, 1)
	assert.Equal(t, ReasonBoundary, deaths[0].Reason)

	var total float64
	w.EachFood(func(f *Food) bool {
		total += f.Score
		assert.LessOrEqual(t, f.Type, w.Config().DeathFoodMaxType)
		return true
	})
	assert.Greater(t, w.FoodCount(), 0)
	// The last drop may overshoot the release budget by at most one item.
	assert.LessOrEqual(t, total, 40*(w.Config().DeathDropMin+w.Config().DeathDropJitter)+FoodTypes[w.Config().DeathFoodMaxType].Score)

	assert.Equal(t, []string{"a"}, w.ReapDead())
	_, ok := w.Agent("a")
	assert.False(t, ok)
}

func TestSafeSpawnPointAvoidsAgents(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) { cfg.SpawnBuffer = 400 })
	_, err := w.CreateAgent(AgentSpec{ID: "a", Spawn: &Point{}})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		p := w.SafeSpawnPoint()
		assert.GreaterOrEqual(t, math.Hypot(p.X, p.Y), 400.0)
		assert.LessOrEqual(t, math.Hypot(p.X, p.Y), w.Config().WorldRadius)
	}
}

func TestCreatePowerupRejectsUnknownKind(t *testing.T) {
	w := newTestWorld(t, nil)
	_, err := w.CreatePowerup("shield", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownPowerup)

	p, err := w.CreatePowerup(PowerupSpeed, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, p.Duration)
	assert.True(t, w.RemovePowerup(p.ID))
	assert.Zero(t, w.PowerupCount())
}

func TestActivatePowerups(t *testing.T) {
	a := &Agent{}
	a.Activate(&Powerup{Kind: PowerupMagnet}, testEpoch)
	assert.True(t, a.Effects.Magnet)

	a.Activate(&Powerup{Kind: PowerupSpeed, Duration: time.Second}, testEpoch)
	assert.True(t, a.Effects.SpeedActive(testEpoch.Add(500*time.Millisecond)))
	assert.False(t, a.Effects.SpeedActive(testEpoch.Add(time.Second)))
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0, NormalizeAngle(2*math.Pi), 1e-9)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(3*math.Pi/2), 1e-9)
	assert.InDelta(t, 0.1, AngleDiff(math.Pi-0.05, -math.Pi+0.05), 1e-9)
	assert.Zero(t, NormalizeAngle(math.NaN()))
}

func TestHSLPrimaries(t *testing.T) {
	assert.Equal(t, RGB{R: 255}, HSL(0, 100, 50))
	assert.Equal(t, RGB{G: 255}, HSL(120, 100, 50))
	assert.Equal(t, RGB{B: 255}, HSL(240, 100, 50))
	assert.Equal(t, RGB{R: 128, G: 128, B: 128}, HSL(0, 0, 50))
}
