package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"snake-arena/server/internal/delta"
)

// Phase is a connection's lifecycle stage.
type Phase int

const (
	// PhasePreGame viewers have not joined and receive nothing.
	PhasePreGame Phase = iota
	PhaseActive
	// PhaseDead viewers keep watching at a reduced rate.
	PhaseDead
)

func (p Phase) String() string {
	switch p {
	case PhasePreGame:
		return "pregame"
	case PhaseActive:
		return "active"
	case PhaseDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Config tunes per-connection throttling.
type Config struct {
	DeadRate        float64
	HighLatencyRate float64
	HighLatency     time.Duration
	ControlRate     float64
	ControlBurst    int
	OutboundQueue   int
}

// DefaultConfig mirrors the arena's historical limits.
func DefaultConfig() Config {
	return Config{
		DeadRate:        10,
		HighLatencyRate: 30,
		HighLatency:     100 * time.Millisecond,
		ControlRate:     30,
		ControlBurst:    5,
		OutboundQueue:   64,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.DeadRate <= 0 {
		c.DeadRate = def.DeadRate
	}
	if c.HighLatencyRate <= 0 {
		c.HighLatencyRate = def.HighLatencyRate
	}
	if c.HighLatency <= 0 {
		c.HighLatency = def.HighLatency
	}
	if c.ControlRate <= 0 {
		c.ControlRate = def.ControlRate
	}
	if c.ControlBurst <= 0 {
		c.ControlBurst = def.ControlBurst
	}
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = def.OutboundQueue
	}
	return c
}

// Session is the explicit per-connection record: lifecycle phase, delta
// baseline, control rate limiter and the outbound frame queue drained by
// the connection's write pump.
type Session struct {
	ID string

	cfg      Config
	limiter  *rate.Limiter
	outbound chan []byte

	mu            sync.Mutex
	phase         Phase
	agentID       string
	name          string
	baseline      *delta.Baseline
	lastSent      time.Time
	rtt           time.Duration
	lastHeartbeat time.Time
	resync        *resyncPolicy
	closed        bool
}

// New creates a pre-game session.
func New(cfg Config) *Session {
	cfg = cfg.normalized()
	return &Session{
		ID:       uuid.NewString(),
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.ControlRate), cfg.ControlBurst),
		outbound: make(chan []byte, cfg.OutboundQueue),
		baseline: delta.NewBaseline(),
		resync:   newResyncPolicy(),
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// AgentID is the agent steered by this connection, empty before a join.
func (s *Session) AgentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Activate binds the session to a freshly spawned agent. The next frame is a
// full state.
func (s *Session) Activate(agentID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseActive
	s.agentID = agentID
	s.name = name
	s.baseline.Reset()
	s.resync.noteReset(ResyncJoin, agentID)
	s.lastSent = time.Time{}
}

// MarkDead moves an active session to the dead phase and returns false when
// it was not active.
func (s *Session) MarkDead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return false
	}
	s.phase = PhaseDead
	return true
}

// AllowControl reports whether a control message arriving at now fits the
// rate limit.
func (s *Session) AllowControl(now time.Time) bool {
	return s.limiter.AllowN(now, 1)
}

// due reports whether the session should receive a frame at now. Pre-game
// sessions never do; dead and high-latency sessions are throttled.
func (s *Session) due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dueLocked(now)
}

func (s *Session) dueLocked(now time.Time) bool {
	var minInterval time.Duration
	switch s.phase {
	case PhasePreGame:
		return false
	case PhaseDead:
		minInterval = interval(s.cfg.DeadRate)
	default:
		if s.rtt > s.cfg.HighLatency {
			minInterval = interval(s.cfg.HighLatencyRate)
		}
	}
	if minInterval == 0 || s.lastSent.IsZero() {
		return true
	}
	return now.Sub(s.lastSent) >= minInterval
}

func interval(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// Sync diffs frame against the session baseline when the session is due.
// It returns false when nothing should be sent.
func (s *Session) Sync(frame *delta.Frame, now time.Time) (delta.Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.dueLocked(now) {
		return delta.Delta{}, false
	}
	d := delta.Diff(frame, s.baseline)
	s.lastSent = now
	if d.Empty() {
		return d, false
	}
	return d, true
}

// ResetBaseline forces the next frame to be a full state.
func (s *Session) ResetBaseline(kind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline.Reset()
	s.resync.noteReset(kind, detail)
}

// Offer queues an encoded frame without blocking. A full queue drops the
// frame and resets the baseline so the viewer is repaired by the next full
// state instead of drifting silently.
func (s *Session) Offer(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.outbound <- frame:
		s.resync.noteFrame()
		return true
	default:
		s.baseline.Reset()
		s.resync.noteReset(ResyncOverflow, s.phase.String())
		return false
	}
}

// QueueDepth is the number of frames waiting for the write pump.
func (s *Session) QueueDepth() int { return len(s.outbound) }

// Outbound is drained by the connection's write pump and closed by Close.
func (s *Session) Outbound() <-chan []byte { return s.outbound }

// Close stops further frames; it is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.outbound)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ConsumeResync returns and clears the pending resync signal.
func (s *Session) ConsumeResync() (ResyncSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resync.consume()
}

// RecordHeartbeat stores the heartbeat arrival and derives the round trip
// from the client's send time when it is plausible.
func (s *Session) RecordHeartbeat(receivedAt time.Time, clientSent int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastHeartbeat = receivedAt
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			s.rtt = rtt
		}
	}
	return s.rtt
}

func (s *Session) RTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtt
}

func (s *Session) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}
