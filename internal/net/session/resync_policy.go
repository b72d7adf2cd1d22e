package session

import (
	"fmt"
)

type ResyncReason struct {
	Kind   string
	Detail string
}

// ResyncSignal summarises why a session's baseline was thrown away since
// the last time the signal was consumed.
type ResyncSignal struct {
	Dropped     uint64
	TotalFrames uint64
	Reasons     []ResyncReason
}

type resyncPolicy struct {
	totalFrames uint64
	dropped     uint64
	pending     bool
	reasons     []ResyncReason
}

const resyncReasonLimit = 8

const (
	ResyncOverflow = "outbound_overflow"
	ResyncAlarm    = "tick_alarm"
	ResyncJoin     = "join"
	ResyncAdmin    = "admin"
	ResyncEncode   = "encode_failure"
)

func newResyncPolicy() *resyncPolicy {
	return &resyncPolicy{reasons: make([]ResyncReason, 0, resyncReasonLimit)}
}

func (p *resyncPolicy) noteFrame() {
	if p == nil {
		return
	}
	if p.totalFrames == ^uint64(0) {
		p.totalFrames = p.totalFrames / 2
		p.dropped = p.dropped / 2
	}
	p.totalFrames++
}

// noteReset records a baseline reset. Every reset is pending: a dropped
// delta leaves the viewer's mirror behind the baseline, so nothing short of
// a full state can repair it.
func (p *resyncPolicy) noteReset(kind, detail string) {
	if p == nil {
		return
	}
	if kind == ResyncOverflow {
		p.dropped++
	}
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, ResyncReason{Kind: kind, Detail: detail})
	}
	p.pending = true
}

func (p *resyncPolicy) consume() (ResyncSignal, bool) {
	if p == nil || !p.pending {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{
		Dropped:     p.dropped,
		TotalFrames: p.totalFrames,
		Reasons:     append([]ResyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalFrames = 0
	p.dropped = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s ResyncSignal) Summary() string {
	if s.Dropped == 0 && s.TotalFrames == 0 && len(s.Reasons) == 0 {
		return ""
	}
	return fmt.Sprintf("dropped=%d total_frames=%d reasons=%v", s.Dropped, s.TotalFrames, s.Reasons)
}
