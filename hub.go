package server

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"snake-arena/server/internal/delta"
	"snake-arena/server/internal/net/codec"
	"snake-arena/server/internal/net/intake"
	"snake-arena/server/internal/net/proto"
	"snake-arena/server/internal/net/session"
	"snake-arena/server/internal/sim"
	"snake-arena/server/internal/telemetry"
	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
	"snake-arena/server/logging/lifecycle"
	"snake-arena/server/logging/network"
)

// Disconnect reasons.
const (
	DisconnectClosed  = "closed"
	DisconnectTimeout = "heartbeat_timeout"
	DisconnectError   = "read_error"
)

var (
	// ErrAlreadyJoined is returned when an active session sends another join.
	ErrAlreadyJoined = errors.New("session already joined")
	// ErrUnknownSession is returned for a session the hub no longer tracks.
	ErrUnknownSession = errors.New("unknown session")
)

// HubConfig wires the hub to its collaborators.
type HubConfig struct {
	Session         session.Config
	Codec           codec.Codec
	TickRate        int
	NetworkRate     int
	DisconnectAfter time.Duration
	Logger          telemetry.Logger
	Publisher       logging.Publisher
	Clock           logging.Clock
	Metrics         *logging.Metrics
	DebugTelemetry  bool
}

// DefaultHubConfig returns JSON framing and the stock session limits.
func DefaultHubConfig() HubConfig {
	loop := sim.DefaultLoopConfig()
	return HubConfig{
		Session:         session.DefaultConfig(),
		Codec:           codec.JSON{},
		TickRate:        loop.TickRate,
		NetworkRate:     loop.NetworkRate,
		DisconnectAfter: disconnectAfter,
	}
}

// Hub binds connection sessions to agents. It runs the network job, turns
// inbound messages into staged commands and tells viewers when their agent
// dies.
type Hub struct {
	engine    *sim.Engine
	cfg       HubConfig
	codec     codec.Codec
	logger    telemetry.Logger
	publisher logging.Publisher
	clock     logging.Clock
	telemetry *telemetryCounters

	worldRadius float64

	mu       sync.Mutex
	sessions map[string]*session.Session
	agents   map[string]*session.Session
}

// NewHub installs the hub as the world's death hook.
func NewHub(engine *sim.Engine, cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.Session == (session.Config{}) {
		cfg.Session = def.Session
	}
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.NetworkRate <= 0 {
		cfg.NetworkRate = def.NetworkRate
	}
	if cfg.DisconnectAfter <= 0 {
		cfg.DisconnectAfter = def.DisconnectAfter
	}
	deps := engine.Deps()
	if cfg.Logger == nil {
		cfg.Logger = deps.Logger
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.WrapLogger(log.New(os.Stderr, "", log.LstdFlags))
	}
	if cfg.Publisher == nil {
		cfg.Publisher = deps.Publisher
	}
	if cfg.Clock == nil {
		cfg.Clock = deps.Clock
	}

	h := &Hub{
		engine:    engine,
		cfg:       cfg,
		codec:     cfg.Codec,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		telemetry: newTelemetryCounters(cfg.DebugTelemetry),
		sessions:  make(map[string]*session.Session),
		agents:    make(map[string]*session.Session),
	}
	engine.Do(func(w *world.World) {
		h.worldRadius = w.Config().WorldRadius
		w.SetDeathHook(h.handleDeath)
	})
	return h
}

// Codec returns the framing used for every outbound message.
func (h *Hub) Codec() codec.Codec { return h.codec }

// Connect registers a pre-game session for a new connection.
func (h *Hub) Connect() *session.Session {
	s := session.New(h.cfg.Session)
	s.RecordHeartbeat(h.clock.Now(), 0)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
	return s
}

// Session looks up a tracked session.
func (h *Hub) Session(id string) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Disconnect forgets the session and removes its agent without dropping
// food. It is safe to call more than once.
func (h *Hub) Disconnect(sessionID, reason string) bool {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	agentID := ""
	if ok {
		agentID = s.AgentID()
		if agentID != "" && h.agents[agentID] == s {
			delete(h.agents, agentID)
		}
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()

	if agentID == "" {
		return true
	}
	var tick uint64
	h.engine.Do(func(w *world.World) {
		w.RemoveAgent(agentID)
		tick = w.Tick()
	})
	h.engine.ForgetActor(agentID)
	lifecycle.PlayerDisconnected(context.Background(), h.publisher, tick, logging.EntityRef{ID: agentID, Kind: logging.EntityKindPlayer}, lifecycle.PlayerDisconnectedPayload{Reason: reason}, map[string]any{"session": sessionID})
	return true
}

// Join spawns an agent for s and queues the setup message. A dead session
// may join again; its old agent is removed first.
func (h *Hub) Join(s *session.Session, name string) (string, error) {
	if s.Phase() == session.PhaseActive {
		return "", ErrAlreadyJoined
	}
	if _, ok := h.Session(s.ID); !ok {
		return "", ErrUnknownSession
	}

	var (
		agent *world.Agent
		tick  uint64
		err   error
	)
	// Registration, setup and activation happen under the world lock so a
	// death in the next tick always finds the session bound to its agent.
	h.engine.Do(func(w *world.World) {
		if previous := s.AgentID(); previous != "" {
			w.RemoveAgent(previous)
			h.mu.Lock()
			if h.agents[previous] == s {
				delete(h.agents, previous)
			}
			h.mu.Unlock()
		}
		agent, err = w.CreateAgent(world.AgentSpec{Name: name, Kind: world.KindHuman})
		if err != nil {
			return
		}
		tick = w.Tick()

		h.mu.Lock()
		h.agents[agent.ID] = s
		h.mu.Unlock()

		setup := proto.NewSetup(agent.ID, h.worldRadius, h.cfg.TickRate, h.cfg.NetworkRate, h.codec.Name())
		if sendErr := h.send(s, setup); sendErr != nil {
			h.logger.Printf("[hub] setup for %s: %v", agent.ID, sendErr)
		}
		s.Activate(agent.ID, name)
	})
	if err != nil {
		return "", errors.Wrap(err, "spawn agent")
	}

	lifecycle.PlayerJoined(context.Background(), h.publisher, tick, agent.EntityRef(), lifecycle.PlayerJoinedPayload{
		Name:   name,
		SpawnX: agent.X,
		SpawnY: agent.Y,
	}, map[string]any{"session": s.ID})
	return agent.ID, nil
}

// HandleMessage decodes one inbound frame and dispatches it. Malformed
// input is dropped with a debug event; it never closes the connection.
func (h *Hub) HandleMessage(s *session.Session, payload []byte) {
	msg, err := proto.DecodeClientMessage(payload)
	if err != nil {
		h.malformed(s, "", err.Error(), len(payload))
		return
	}
	now := h.clock.Now()
	switch msg.Type {
	case proto.TypeJoin:
		join := proto.ParseJoin(msg)
		if _, err := h.Join(s, join.Name); err != nil && !errors.Is(err, ErrAlreadyJoined) {
			h.logger.Printf("[hub] join failed for session %s: %v", s.ID, err)
		}
	case proto.TypeControl:
		h.control(s, msg, now, len(payload))
	case proto.TypeHeartbeat:
		h.heartbeat(s, msg, now)
	}
}

func (h *Hub) control(s *session.Session, msg proto.ClientMessage, now time.Time, size int) {
	if s.Phase() != session.PhaseActive {
		return
	}
	agentID := s.AgentID()
	if !s.AllowControl(now) {
		network.ControlThrottled(context.Background(), h.publisher, 0, logging.EntityRef{ID: agentID, Kind: logging.EntityKindPlayer}, network.ThrottlePayload{
			Limit: h.cfg.Session.ControlRate,
			Burst: h.cfg.Session.ControlBurst,
		}, map[string]any{"session": s.ID})
		return
	}
	control := proto.ParseControl(msg)
	_, reason := intake.StageControl(intake.CommandContext{Engine: h.engine, Now: h.clock.Now}, agentID, control)
	if reason == intake.RejectEmpty {
		h.malformed(s, msg.Type, reason, size)
	}
}

func (h *Hub) heartbeat(s *session.Session, msg proto.ClientMessage, now time.Time) {
	clientSent := proto.ParseHeartbeat(msg)
	rtt := s.RecordHeartbeat(now, clientSent)
	if s.Phase() == session.PhaseActive {
		intake.StagePing(intake.CommandContext{Engine: h.engine, Now: h.clock.Now}, s.AgentID(), rtt)
	}
	ack := proto.NewHeartbeatAck(now.UnixMilli(), clientSent, rtt.Milliseconds())
	if err := h.send(s, ack); err != nil {
		h.logger.Printf("[hub] heartbeat ack for session %s: %v", s.ID, err)
	}
}

func (h *Hub) malformed(s *session.Session, typ, reason string, size int) {
	network.MalformedMessage(context.Background(), h.publisher, 0, logging.EntityRef{ID: s.ID, Kind: logging.EntityKindSession}, network.MessagePayload{
		Type:   typ,
		Reason: reason,
		Bytes:  size,
	}, nil)
}

// send encodes v and queues it; a full queue is reported as an overflow.
func (h *Hub) send(s *session.Session, v any) error {
	frame, err := h.codec.Encode(v)
	if err != nil {
		return err
	}
	if !s.Offer(frame) {
		h.overflow(s)
	}
	return nil
}

func (h *Hub) overflow(s *session.Session) {
	if s.Closed() {
		return
	}
	h.telemetry.RecordDrop()
	network.OutboundOverflow(context.Background(), h.publisher, 0, logging.EntityRef{ID: s.ID, Kind: logging.EntityKindSession}, network.OverflowPayload{
		QueueDepth: s.QueueDepth(),
	}, nil)
}

// WriteFailed reports a socket write error for s.
func (h *Hub) WriteFailed(s *session.Session, err error) {
	network.WriteFailed(context.Background(), h.publisher, 0, logging.EntityRef{ID: s.ID, Kind: logging.EntityKindSession}, network.WritePayload{
		Error: err.Error(),
	}, nil)
}

// Broadcast is the network job: one capture under the world lock, then a
// per-viewer diff queued to each write pump.
func (h *Hub) Broadcast(now time.Time) int {
	var frame *delta.Frame
	h.engine.Do(func(w *world.World) {
		frame = delta.Capture(w)
	})

	sent := 0
	for _, s := range h.snapshotSessions() {
		d, ok := s.Sync(frame, now)
		if ok {
			payload, err := h.codec.Encode(proto.NewState(d, now.UnixMilli()))
			if err != nil {
				h.logger.Printf("[hub] encode state for session %s: %v", s.ID, err)
				s.ResetBaseline(session.ResyncEncode, err.Error())
				continue
			}
			if s.Offer(payload) {
				sent++
				h.telemetry.RecordBroadcast(len(payload), entityCount(d))
			} else {
				h.overflow(s)
			}
		}
		if signal, pending := s.ConsumeResync(); pending {
			h.telemetry.RecordResync()
			h.logger.Printf("[resync] session=%s %s", s.ID, signal.Summary())
		}
	}
	return sent
}

func entityCount(d delta.Delta) int {
	return len(d.Players.Added) + len(d.Players.Updated) + len(d.Players.Removed) +
		len(d.Food.Added) + len(d.Food.Updated) + len(d.Food.Removed) +
		len(d.Powerups.Added) + len(d.Powerups.Updated) + len(d.Powerups.Removed)
}

// ResyncAll forces a full state for every viewer.
func (h *Hub) ResyncAll(kind string) {
	for _, s := range h.snapshotSessions() {
		s.ResetBaseline(kind, "")
	}
}

// AfterStep records tick timing.
func (h *Hub) AfterStep(_ sim.StepResult, duration time.Duration) {
	h.telemetry.RecordTickDuration(duration)
}

// Maintain disconnects sessions whose heartbeat is older than the
// configured timeout and returns their ids.
func (h *Hub) Maintain(now time.Time) []string {
	cutoff := now.Add(-h.cfg.DisconnectAfter)
	var stale []string
	for _, s := range h.snapshotSessions() {
		if s.LastHeartbeat().Before(cutoff) {
			stale = append(stale, s.ID)
		}
	}
	for _, id := range stale {
		h.Disconnect(id, DisconnectTimeout)
	}
	if len(stale) > 0 {
		h.logger.Printf("[hub] dropped %d stale session(s)", len(stale))
	}
	return stale
}

// handleDeath runs inside the tick under the world lock. It must not call
// back into the engine.
func (h *Hub) handleDeath(a *world.Agent, cause world.KillCause) {
	if a.Bot() {
		return
	}
	h.mu.Lock()
	s, ok := h.agents[a.ID]
	h.mu.Unlock()
	if !ok || !s.MarkDead() {
		return
	}
	h.telemetry.RecordDeath()
	if err := h.send(s, proto.NewDeath(a.Score(), cause.Reason, cause.KillerID)); err != nil {
		h.logger.Printf("[hub] death notice for %s: %v", a.ID, err)
	}
}

func (h *Hub) snapshotSessions() []*session.Session {
	h.mu.Lock()
	out := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DiagnosticsSnapshot reports per-session state for the diagnostics
// endpoint.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsSession {
	sessions := h.snapshotSessions()
	out := make([]diagnosticsSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, diagnosticsSession{
			Ver:           ProtocolVersion,
			ID:            s.ID,
			AgentID:       s.AgentID(),
			Name:          s.Name(),
			Phase:         s.Phase().String(),
			LastHeartbeat: s.LastHeartbeat().UnixMilli(),
			RTTMillis:     s.RTT().Milliseconds(),
			QueueDepth:    s.QueueDepth(),
		})
	}
	return out
}

// WorldSnapshot summarises the registry under the world lock.
func (h *Hub) WorldSnapshot() worldDiagnostics {
	var out worldDiagnostics
	h.engine.Do(func(w *world.World) {
		humans, bots := w.CountAgents()
		out = worldDiagnostics{
			Tick:     w.Tick(),
			Radius:   w.Config().WorldRadius,
			Humans:   humans,
			Bots:     bots,
			Food:     w.FoodCount(),
			Powerups: w.PowerupCount(),
		}
	})
	return out
}

// TelemetrySnapshot exposes the hub counters.
func (h *Hub) TelemetrySnapshot() telemetrySnapshot {
	return h.telemetry.Snapshot()
}

// Diagnostics is the payload served on the diagnostics endpoint.
type Diagnostics struct {
	Status          string               `json:"status"`
	ServerTime      int64                `json:"serverTime"`
	TickRate        int                  `json:"tickRate"`
	NetworkRate     int                  `json:"networkRate"`
	HeartbeatMillis int64                `json:"heartbeatMillis"`
	Codec           string               `json:"codec"`
	World           worldDiagnostics     `json:"world"`
	Sessions        []diagnosticsSession `json:"sessions"`
	Telemetry       telemetrySnapshot    `json:"telemetry"`
	Counters        map[string]uint64    `json:"counters,omitempty"`
	Logging         *logging.RouterStats `json:"logging,omitempty"`
}

type routerStatser interface {
	Stats() logging.RouterStats
}

// Diagnostics assembles the full diagnostics payload.
func (h *Hub) Diagnostics() Diagnostics {
	out := Diagnostics{
		Status:          "ok",
		ServerTime:      h.clock.Now().UnixMilli(),
		TickRate:        h.cfg.TickRate,
		NetworkRate:     h.cfg.NetworkRate,
		HeartbeatMillis: heartbeatInterval.Milliseconds(),
		Codec:           h.codec.Name(),
		World:           h.WorldSnapshot(),
		Sessions:        h.DiagnosticsSnapshot(),
		Telemetry:       h.TelemetrySnapshot(),
		Counters:        h.cfg.Metrics.Snapshot(),
	}
	if router, ok := h.publisher.(routerStatser); ok {
		stats := router.Stats()
		out.Logging = &stats
	}
	return out
}
