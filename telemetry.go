package server

import (
	"fmt"
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	bytesSent             atomic.Uint64
	entitiesSent          atomic.Uint64
	framesSent            atomic.Uint64
	framesDropped         atomic.Uint64
	resyncs               atomic.Uint64
	deaths                atomic.Uint64
	tickDurationMillis    atomic.Int64
	maxTickMillis         atomic.Int64
	lastBroadcastBytes    atomic.Uint64
	lastBroadcastEntities atomic.Uint64
	debug                 bool
}

type telemetrySnapshot struct {
	BytesSent       uint64 `json:"bytesSent"`
	EntitiesSent    uint64 `json:"entitiesSent"`
	FramesSent      uint64 `json:"framesSent"`
	FramesDropped   uint64 `json:"framesDropped"`
	Resyncs         uint64 `json:"resyncs"`
	Deaths          uint64 `json:"deaths"`
	TickDuration    int64  `json:"tickDurationMillis"`
	MaxTickDuration int64  `json:"maxTickDurationMillis"`
}

func newTelemetryCounters(debug bool) *telemetryCounters {
	return &telemetryCounters{debug: debug}
}

func (t *telemetryCounters) RecordBroadcast(bytes, entities int) {
	if bytes < 0 {
		bytes = 0
	}
	if entities < 0 {
		entities = 0
	}
	t.framesSent.Add(1)
	t.bytesSent.Add(uint64(bytes))
	t.entitiesSent.Add(uint64(entities))
	t.lastBroadcastBytes.Store(uint64(bytes))
	t.lastBroadcastEntities.Store(uint64(entities))
}

func (t *telemetryCounters) RecordDrop() {
	t.framesDropped.Add(1)
}

func (t *telemetryCounters) RecordResync() {
	t.resyncs.Add(1)
}

func (t *telemetryCounters) RecordDeath() {
	t.deaths.Add(1)
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	for {
		current := t.maxTickMillis.Load()
		if millis <= current || t.maxTickMillis.CompareAndSwap(current, millis) {
			break
		}
	}
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms bytes=%d totalBytes=%d entities=%d totalEntities=%d\n",
			millis,
			t.lastBroadcastBytes.Load(),
			t.bytesSent.Load(),
			t.lastBroadcastEntities.Load(),
			t.entitiesSent.Load(),
		)
	}
}

func (t *telemetryCounters) DebugEnabled() bool {
	return t.debug
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:       t.bytesSent.Load(),
		EntitiesSent:    t.entitiesSent.Load(),
		FramesSent:      t.framesSent.Load(),
		FramesDropped:   t.framesDropped.Load(),
		Resyncs:         t.resyncs.Load(),
		Deaths:          t.deaths.Load(),
		TickDuration:    t.tickDurationMillis.Load(),
		MaxTickDuration: t.maxTickMillis.Load(),
	}
}
