package session

import "testing"

func TestResyncPolicyCountsOverflowDrops(t *testing.T) {
	policy := newResyncPolicy()
	for i := 0; i < 200; i++ {
		policy.noteFrame()
	}
	if signal, ok := policy.consume(); ok {
		t.Fatalf("unexpected pending signal without a reset, got %+v", signal)
	}

	policy.noteReset(ResyncOverflow, "active")
	policy.noteReset(ResyncAlarm, "")
	signal, ok := policy.consume()
	if !ok {
		t.Fatalf("expected resync signal after reset")
	}
	if signal.Dropped != 1 {
		t.Fatalf("expected one drop, got %d", signal.Dropped)
	}
	if signal.TotalFrames != 200 {
		t.Fatalf("expected total frames 200, got %d", signal.TotalFrames)
	}
	if len(signal.Reasons) != 2 || signal.Reasons[1].Kind != ResyncAlarm {
		t.Fatalf("unexpected reasons %+v", signal.Reasons)
	}
}

func TestResyncPolicyResetAfterConsume(t *testing.T) {
	policy := newResyncPolicy()
	policy.noteFrame()
	policy.noteReset(ResyncOverflow, "dead")
	if _, ok := policy.consume(); !ok {
		t.Fatalf("expected resync signal after overflow")
	}
	if signal, ok := policy.consume(); ok {
		t.Fatalf("expected no signal after reset, got %+v", signal)
	}
	for i := 0; i < resyncReasonLimit+4; i++ {
		policy.noteReset(ResyncOverflow, "active")
	}
	signal, ok := policy.consume()
	if !ok {
		t.Fatalf("expected policy to trigger again after reset")
	}
	if len(signal.Reasons) != resyncReasonLimit {
		t.Fatalf("expected reasons capped at %d, got %d", resyncReasonLimit, len(signal.Reasons))
	}
}
