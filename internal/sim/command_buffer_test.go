package sim

import "testing"

func TestCommandBufferRefillsAfterDrain(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: "a"},
		{ActorID: "b"},
		{ActorID: "c"},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	// Slots are reusable once drained.
	for _, cmd := range []Command{{ActorID: "d"}, {ActorID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after refill, got %d", len(wrapped))
	}
	if wrapped[0].ActorID != "d" || wrapped[1].ActorID != "e" {
		t.Fatalf("unexpected order after refill: %+v", wrapped)
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	buffer := NewCommandBuffer(1, nil)
	if !buffer.Push(Command{ActorID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{ActorID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
}

func TestCommandBufferCoalescesPerActorAndType(t *testing.T) {
	buffer := NewCommandBuffer(8, nil)
	buffer.Push(SetTargetHeading("a", 0.1))
	buffer.Push(SetBoosting("a", true))
	buffer.Push(SetTargetHeading("b", 1))
	buffer.Push(SetTargetHeading("a", 0.7))
	buffer.Push(SetBoosting("a", false))

	drained := buffer.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 coalesced commands, got %d: %+v", len(drained), drained)
	}
	if drained[0].ActorID != "a" || drained[0].Heading == nil || drained[0].Heading.Angle != 0.7 {
		t.Fatalf("expected newest heading for a first, got %+v", drained[0])
	}
	if drained[1].Boost == nil || drained[1].Boost.Enabled {
		t.Fatalf("expected newest boost state for a, got %+v", drained[1])
	}
	if drained[2].ActorID != "b" {
		t.Fatalf("expected b last, got %+v", drained[2])
	}
}

type recordingMetrics struct {
	added  map[string]uint64
	stored map[string]uint64
}

func (m *recordingMetrics) Add(key string, delta uint64) {
	if m.added == nil {
		m.added = make(map[string]uint64)
	}
	m.added[key] += delta
}

func (m *recordingMetrics) Store(key string, value uint64) {
	if m.stored == nil {
		m.stored = make(map[string]uint64)
	}
	m.stored[key] = value
}

func TestCommandBufferMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	buffer := NewCommandBuffer(1, metrics)
	buffer.Push(Command{ActorID: "one"})
	if got := metrics.stored[commandBufferOccupancyMetricKey]; got != 1 {
		t.Fatalf("expected occupancy 1, got %d", got)
	}
	buffer.Push(Command{ActorID: "two"})
	if got := metrics.added[commandBufferOverflowMetricKey]; got != 1 {
		t.Fatalf("expected one overflow, got %d", got)
	}
	buffer.Drain()
	if got := metrics.stored[commandBufferOccupancyMetricKey]; got != 0 {
		t.Fatalf("expected occupancy reset, got %d", got)
	}
}

func TestCommandBufferDiscardKeepsOthersInOrder(t *testing.T) {
	buffer := NewCommandBuffer(4, nil)
	for _, id := range []string{"a", "gone", "b", "gone"} {
		if !buffer.Push(Command{ActorID: id, Type: CommandType(id)}) {
			t.Fatalf("push %s failed", id)
		}
	}
	if removed := buffer.Discard("gone"); removed != 2 {
		t.Fatalf("expected 2 discarded, got %d", removed)
	}
	if buffer.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", buffer.Len())
	}
	if !buffer.Push(Command{ActorID: "c", Type: "c"}) {
		t.Fatalf("expected room after discard")
	}
	drained := buffer.Drain()
	if len(drained) != 3 || drained[0].ActorID != "a" || drained[1].ActorID != "b" || drained[2].ActorID != "c" {
		t.Fatalf("unexpected order after discard: %+v", drained)
	}
	if buffer.HighWater() != 4 {
		t.Fatalf("expected high water 4, got %d", buffer.HighWater())
	}
}

func TestEngineForgetActorDropsStagedCommands(t *testing.T) {
	engine := NewEngine(newWorld(t, nil), DefaultEngineConfig(), Deps{}, EngineHooks{})
	engine.Enqueue(SetTargetHeading("p1", 1))
	engine.Enqueue(SetBoosting("p1", true))
	engine.Enqueue(SetTargetHeading("p2", 2))

	if dropped := engine.ForgetActor("p1"); dropped != 2 {
		t.Fatalf("expected 2 staged commands dropped, got %d", dropped)
	}
	if engine.Pending() != 1 {
		t.Fatalf("expected 1 pending command, got %d", engine.Pending())
	}
}
