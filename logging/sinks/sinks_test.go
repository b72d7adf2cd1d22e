package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "combat.kill",
		Tick:     42,
		Time:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Actor:    logging.EntityRef{ID: "a1", Kind: logging.EntityKindPlayer},
		Targets:  []logging.EntityRef{{ID: "b2", Kind: logging.EntityKindBot}},
		Payload:  map[string]any{"reason": "body"},
		Extra:    map[string]any{"zone": 2, "arena": "main"},
	}
}

func TestConsoleSinkLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	require.NoError(t, sink.Write(sampleEvent()))

	line := buf.String()
	assert.Contains(t, line, "WARN  combat.kill tick=42 player:a1 -> bot:b2")
	assert.Contains(t, line, `{"reason":"body"}`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "arena=main zone=2"), line)
}

func TestConsoleSinkColorWrapsLevel(t *testing.T) {
	var plain, colored bytes.Buffer
	require.NoError(t, NewConsoleSink(&plain, logging.ConsoleConfig{}).Write(sampleEvent()))
	require.NoError(t, NewConsoleSink(&colored, logging.ConsoleConfig{UseColor: true}).Write(sampleEvent()))
	assert.Contains(t, colored.String(), "\x1b[")
	assert.NotContains(t, plain.String(), "\x1b[")
}

func TestJSONSinkBatchesUntilMaxBatch(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{MaxBatch: 2})

	require.NoError(t, sink.Write(sampleEvent()))
	assert.Zero(t, buf.Len(), "first event should stay buffered")

	require.NoError(t, sink.Write(sampleEvent()))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	require.NoError(t, sink.Write(sampleEvent()))
	require.NoError(t, sink.Close(context.Background()))

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		assert.Equal(t, "combat.kill", record["type"])
		assert.Equal(t, "warn", record["severity"])
		assert.Equal(t, "2024-05-06T07:08:09Z", record["time"])
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestMemorySinkFiltersByType(t *testing.T) {
	sink := NewMemorySink()
	event := sampleEvent()
	require.NoError(t, sink.Write(event))
	require.NoError(t, sink.Write(logging.Event{Type: "lifecycle.player_joined"}))

	event.Extra["zone"] = 9
	stored := sink.OfType("combat.kill")
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Extra["zone"])
	assert.Equal(t, 1, sink.Count("lifecycle.player_joined"))

	sink.Reset()
	assert.Empty(t, sink.Events())
	require.NoError(t, sink.Close(context.Background()))
	assert.True(t, sink.Closed())
}
