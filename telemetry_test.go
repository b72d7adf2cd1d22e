package server

import (
	"testing"
	"time"
)

func TestTelemetryBroadcastTotals(t *testing.T) {
	counters := newTelemetryCounters(false)
	counters.RecordBroadcast(120, 4)
	counters.RecordBroadcast(80, 2)
	counters.RecordBroadcast(-5, -1)
	counters.RecordDrop()
	counters.RecordResync()
	counters.RecordDeath()

	snapshot := counters.Snapshot()
	if snapshot.FramesSent != 3 {
		t.Fatalf("expected 3 frames, got %d", snapshot.FramesSent)
	}
	if snapshot.BytesSent != 200 {
		t.Fatalf("expected 200 bytes, got %d", snapshot.BytesSent)
	}
	if snapshot.EntitiesSent != 6 {
		t.Fatalf("expected 6 entities, got %d", snapshot.EntitiesSent)
	}
	if snapshot.FramesDropped != 1 || snapshot.Resyncs != 1 || snapshot.Deaths != 1 {
		t.Fatalf("unexpected event counters %+v", snapshot)
	}
}

func TestTelemetryTracksMaxTickDuration(t *testing.T) {
	counters := newTelemetryCounters(false)
	counters.RecordTickDuration(12 * time.Millisecond)
	counters.RecordTickDuration(30 * time.Millisecond)
	counters.RecordTickDuration(8 * time.Millisecond)

	snapshot := counters.Snapshot()
	if snapshot.TickDuration != 8 {
		t.Fatalf("expected last tick 8ms, got %d", snapshot.TickDuration)
	}
	if snapshot.MaxTickDuration != 30 {
		t.Fatalf("expected max tick 30ms, got %d", snapshot.MaxTickDuration)
	}
	if counters.DebugEnabled() {
		t.Fatalf("debug should be off")
	}
}
