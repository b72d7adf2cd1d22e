package session

import (
	"testing"
	"time"

	"snake-arena/server/internal/delta"
)

var epoch = time.Unix(1_700_000_000, 0)

func frameWith(ids ...string) *delta.Frame {
	frame := &delta.Frame{
		Agents:   make(map[string]delta.AgentState),
		Food:     map[string]delta.FoodState{},
		Powerups: map[string]delta.PowerupState{},
	}
	for i, id := range ids {
		frame.Agents[id] = delta.AgentState{ID: id, X: float64(i)}
	}
	return frame
}

func TestPreGameSessionsReceiveNothing(t *testing.T) {
	s := New(DefaultConfig())
	if s.Phase() != PhasePreGame {
		t.Fatalf("expected pregame, got %s", s.Phase())
	}
	if _, ok := s.Sync(frameWith("a"), epoch); ok {
		t.Fatalf("pregame session must not be synced")
	}
}

func TestActivateStartsWithFullState(t *testing.T) {
	s := New(DefaultConfig())
	s.Activate("agent-1", "Ann")
	if s.AgentID() != "agent-1" || s.Name() != "Ann" {
		t.Fatalf("unexpected binding %q %q", s.AgentID(), s.Name())
	}

	d, ok := s.Sync(frameWith("a"), epoch)
	if !ok || !d.Full {
		t.Fatalf("expected a full first frame, got ok=%v full=%v", ok, d.Full)
	}
	if _, ok := s.Sync(frameWith("a"), epoch.Add(time.Millisecond)); ok {
		t.Fatalf("unchanged frame should not be sent")
	}
	d, ok = s.Sync(frameWith("a", "b"), epoch.Add(2*time.Millisecond))
	if !ok || d.Full || len(d.Players.Added) != 1 {
		t.Fatalf("expected an incremental add, got %+v", d)
	}
}

func TestDeadSessionsAreThrottled(t *testing.T) {
	s := New(DefaultConfig())
	s.Activate("agent-1", "Ann")
	if !s.MarkDead() {
		t.Fatalf("expected active session to die")
	}
	if s.MarkDead() {
		t.Fatalf("dead session cannot die twice")
	}

	if _, ok := s.Sync(frameWith("a"), epoch); !ok {
		t.Fatalf("expected first dead frame to be sent")
	}
	if s.due(epoch.Add(50 * time.Millisecond)) {
		t.Fatalf("dead session should wait 100ms between frames")
	}
	if !s.due(epoch.Add(100 * time.Millisecond)) {
		t.Fatalf("dead session should be due after 100ms")
	}
}

func TestHighLatencySessionsAreThrottled(t *testing.T) {
	s := New(Config{HighLatencyRate: 10, HighLatency: 100 * time.Millisecond})
	s.Activate("agent-1", "Ann")
	s.Sync(frameWith("a"), epoch)
	if !s.due(epoch.Add(time.Millisecond)) {
		t.Fatalf("low-latency active session is due every network tick")
	}

	rtt := s.RecordHeartbeat(epoch, epoch.Add(-250*time.Millisecond).UnixMilli())
	if rtt != 250*time.Millisecond {
		t.Fatalf("unexpected rtt %s", rtt)
	}
	if s.due(epoch.Add(50 * time.Millisecond)) {
		t.Fatalf("high-latency session should be throttled")
	}
	if !s.due(epoch.Add(100 * time.Millisecond)) {
		t.Fatalf("high-latency session should be due after its interval")
	}
}

func TestRecordHeartbeatIgnoresImplausibleClientTimes(t *testing.T) {
	s := New(DefaultConfig())
	s.RecordHeartbeat(epoch, epoch.Add(-40*time.Millisecond).UnixMilli())
	if got := s.RecordHeartbeat(epoch, epoch.Add(time.Minute).UnixMilli()); got != 40*time.Millisecond {
		t.Fatalf("future client time should keep the previous rtt, got %s", got)
	}
	if got := s.RecordHeartbeat(epoch, 0); got != 40*time.Millisecond {
		t.Fatalf("missing client time should keep the previous rtt, got %s", got)
	}
	if !s.LastHeartbeat().Equal(epoch) {
		t.Fatalf("expected heartbeat time to be recorded")
	}
}

func TestControlRateLimit(t *testing.T) {
	s := New(Config{ControlRate: 30, ControlBurst: 2})
	if !s.AllowControl(epoch) || !s.AllowControl(epoch) {
		t.Fatalf("expected burst to be allowed")
	}
	if s.AllowControl(epoch) {
		t.Fatalf("expected third message in the same instant to be limited")
	}
	if !s.AllowControl(epoch.Add(time.Second / 15)) {
		t.Fatalf("expected tokens to refill")
	}
}

func TestOverflowResetsBaseline(t *testing.T) {
	s := New(Config{OutboundQueue: 1})
	s.Activate("agent-1", "Ann")
	s.ConsumeResync()
	s.Sync(frameWith("a"), epoch)

	if !s.Offer([]byte("one")) {
		t.Fatalf("expected first frame to fit")
	}
	if s.Offer([]byte("two")) {
		t.Fatalf("expected second frame to overflow")
	}
	if s.QueueDepth() != 1 {
		t.Fatalf("expected one queued frame, got %d", s.QueueDepth())
	}

	signal, ok := s.ConsumeResync()
	if !ok || signal.Dropped != 1 {
		t.Fatalf("expected an overflow resync signal, got %+v", signal)
	}
	if signal.Summary() == "" {
		t.Fatalf("expected a summary")
	}

	d, ok := s.Sync(frameWith("a"), epoch.Add(time.Millisecond))
	if !ok || !d.Full {
		t.Fatalf("expected a full state after overflow")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(DefaultConfig())
	s.Offer([]byte("x"))
	s.Close()
	s.Close()
	if s.Offer([]byte("y")) {
		t.Fatalf("closed session must reject frames")
	}
	if _, ok := <-s.Outbound(); !ok {
		t.Fatalf("expected buffered frame to drain before close")
	}
	if _, ok := <-s.Outbound(); ok {
		t.Fatalf("expected outbound channel to be closed")
	}
}
