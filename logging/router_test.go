package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/logging"
	"snake-arena/server/logging/sinks"
)

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, router.Close(ctx))
}

func TestRouterFiltersByCategorySeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = nil
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	require.NoError(t, err)

	ctx := context.Background()
	router.Publish(ctx, logging.Event{Type: "lifecycle.player_joined", Severity: logging.SeverityInfo, Category: logging.CategoryGameplay})
	router.Publish(ctx, logging.Event{Type: "network.malformed", Severity: logging.SeverityInfo, Category: logging.CategoryNetwork})
	router.Publish(ctx, logging.Event{Type: "network.overflow", Severity: logging.SeverityWarn, Category: logging.CategoryNetwork})
	router.Publish(ctx, logging.Event{Type: "lifecycle.bot_spawned", Severity: logging.SeverityDebug, Category: logging.CategoryGameplay})
	closeRouter(t, router)

	assert.Equal(t, 1, memory.Count("lifecycle.player_joined"))
	assert.Zero(t, memory.Count("network.malformed"))
	assert.Equal(t, 1, memory.Count("network.overflow"))
	assert.Zero(t, memory.Count("lifecycle.bot_spawned"))
	assert.True(t, memory.Closed())

	stats := router.Stats()
	assert.Equal(t, uint64(2), stats.EventsTotal)
	assert.Equal(t, uint64(2), stats.FilteredTotal)
	require.Len(t, stats.Sinks, 1)
	assert.Equal(t, "memory", stats.Sinks[0].Name)
}

func TestRouterSkipsDisabledSinks(t *testing.T) {
	enabled := sinks.NewMemorySink()
	disabled := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"enabled"}
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{
		{Name: "enabled", Sink: enabled},
		{Name: "disabled", Sink: disabled},
	})
	require.NoError(t, err)

	router.Publish(context.Background(), logging.Event{Type: "simulation.population_adjusted", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	assert.Len(t, enabled.Events(), 1)
	assert.Empty(t, disabled.Events())
	assert.False(t, disabled.Closed())
}

func TestRouterStampsTimeAndFields(t *testing.T) {
	memory := sinks.NewMemorySink()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = nil
	cfg.Fields = map[string]any{"server": "arena-1"}
	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	require.NoError(t, err)

	router.Publish(context.Background(), logging.Event{Type: "combat.kill", Severity: logging.SeverityInfo, Extra: map[string]any{"server": "override"}})
	router.Publish(context.Background(), logging.Event{Type: "combat.kill", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	closeRouter(t, router)

	events := memory.OfType("combat.kill")
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Time)
	assert.Equal(t, "override", events[0].Extra["server"])
	assert.Equal(t, "arena-1", events[1].Extra["server"])
	assert.Len(t, memory.Events(), 2)
}

func TestConfigMinimumFor(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, logging.SeverityWarn, cfg.MinimumFor(logging.CategoryNetwork))
	assert.Equal(t, logging.SeverityInfo, cfg.MinimumFor(logging.CategoryGameplay))
}
