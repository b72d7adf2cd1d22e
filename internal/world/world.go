package world

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"snake-arena/server/internal/ring"
	"snake-arena/server/internal/spatial"
	"snake-arena/server/logging"
	"snake-arena/server/logging/simulation"
)

var (
	// ErrAgentExists is returned when an agent id is already registered.
	ErrAgentExists = errors.New("agent already exists")
	// ErrUnknownAgent is returned when an operation names a missing agent.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownPowerup is returned for an unregistered powerup kind.
	ErrUnknownPowerup = errors.New("unknown powerup kind")
)

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Publisher logging.Publisher
	Clock     logging.Clock
	RNG       RNGFactory
	// OnDeath runs after an agent is marked dead and its food scattered.
	OnDeath func(agent *Agent, cause KillCause)
}

// AgentSpec configures CreateAgent. Zero fields take defaults.
type AgentSpec struct {
	ID     string
	Name   string
	Kind   Kind
	Spawn  *Point
	Length float64
}

// World is the entity registry: it owns every agent, food item and powerup,
// the spatial indexes over them and the food free-list. It is not safe for
// concurrent use; the engine serialises access behind its world lock.
type World struct {
	cfg       Config
	publisher logging.Publisher
	clock     logging.Clock
	rng       *rand.Rand
	onDeath   func(*Agent, KillCause)

	agents    map[string]*Agent
	food      map[string]*Food
	wanderers map[string]*Food
	powerups  map[string]*Powerup

	agentIndex *spatial.Index[Collider]
	foodIndex  *spatial.Index[*Food]
	foodPool   []*Food

	nextFoodID    uint64
	nextPowerupID uint64
	tick          uint64
}

// New constructs a world instance with normalized configuration and seeded RNG.
func New(cfg Config, deps Deps) *World {
	normalized := cfg.Normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock
	}

	return &World{
		cfg:        normalized,
		publisher:  publisher,
		clock:      clock,
		rng:        factory(normalized.Seed, "world"),
		onDeath:    deps.OnDeath,
		agents:     make(map[string]*Agent),
		food:       make(map[string]*Food),
		wanderers:  make(map[string]*Food),
		powerups:   make(map[string]*Powerup),
		agentIndex: spatial.NewIndex[Collider](normalized.AgentCellSize),
		foodIndex:  spatial.NewIndex[*Food](normalized.FoodCellSize),
	}
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config { return w.cfg }

// RNG exposes the world RNG.
func (w *World) RNG() *rand.Rand { return w.rng }

// Publisher exposes the event publisher.
func (w *World) Publisher() logging.Publisher { return w.publisher }

// Now reads the world clock.
func (w *World) Now() time.Time { return w.clock.Now() }

// Tick reports the number of completed simulation ticks.
func (w *World) Tick() uint64 { return w.tick }

// AdvanceTick increments the tick counter and returns the new value.
func (w *World) AdvanceTick() uint64 {
	w.tick++
	return w.tick
}

// SetDeathHook replaces the death callback.
func (w *World) SetDeathHook(fn func(*Agent, KillCause)) { w.onDeath = fn }

// Agent looks up an agent by id, dead or alive.
func (w *World) Agent(id string) (*Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

// Agents returns every registered agent sorted by id.
func (w *World) Agents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveAgents returns living agents sorted by id.
func (w *World) LiveAgents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountAgents reports living humans and bots.
func (w *World) CountAgents() (humans, bots int) {
	for _, a := range w.agents {
		if !a.Alive {
			continue
		}
		if a.Bot() {
			bots++
		} else {
			humans++
		}
	}
	return humans, bots
}

// CreateAgent registers a new living agent.
func (w *World) CreateAgent(spec AgentSpec) (*Agent, error) {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := w.agents[id]; exists {
		return nil, errors.Wrapf(ErrAgentExists, "create agent %s", id)
	}

	spawn := w.SafeSpawnPoint()
	if spec.Spawn != nil {
		spawn = *spec.Spawn
	}
	length := spec.Length
	if length <= 0 {
		length = w.cfg.InitialLength
	}
	name := spec.Name
	if name == "" {
		name = "Anonymous"
	}
	now := w.Now()
	angle := NormalizeAngle(RandomAngle(w.rng))

	agent := &Agent{
		ID:          id,
		Name:        name,
		Kind:        spec.Kind,
		X:           spawn.X,
		Y:           spawn.Y,
		Angle:       angle,
		TargetAngle: angle,
		Speed:       w.cfg.InitialSpeed,
		TurnRate:    w.cfg.InitialTurnRate,
		Length:      length,
		Radius:      w.cfg.InitialRadius,
		Color:       RandomAgentColor(w.rng),
		Alive:       true,
		Body:        ring.NewDeque[Point](int(math.Ceil(length)) + 1),
		History:     ring.NewDeque[Sample](w.cfg.HistorySize),
		SpawnedAt:   now,
	}
	agent.Body.PushFront(Point{X: spawn.X, Y: spawn.Y})
	agent.History.PushFront(Sample{X: spawn.X, Y: spawn.Y, At: now})

	w.agents[id] = agent
	w.ReindexAgent(agent)
	return agent, nil
}

// RemoveAgent deregisters an agent without scattering food.
func (w *World) RemoveAgent(id string) bool {
	agent, ok := w.agents[id]
	if !ok {
		return false
	}
	if agent.Alive {
		w.deindexAgent(agent, "remove_agent")
	}
	delete(w.agents, id)
	return true
}

// ReapDead removes agents that died since the last reap and returns their ids.
func (w *World) ReapDead() []string {
	var reaped []string
	for id, agent := range w.agents {
		if agent.Alive {
			continue
		}
		delete(w.agents, id)
		reaped = append(reaped, id)
	}
	sort.Strings(reaped)
	return reaped
}

// ReindexAgent re-registers a living agent's head and body chunks.
func (w *World) ReindexAgent(agent *Agent) {
	if agent == nil || !agent.Alive {
		return
	}
	w.agentIndex.Update(agent)

	size := w.cfg.BodyChunkSize
	segments := agent.Body.Len()
	want := (segments + size - 1) / size
	for len(agent.chunks) > want {
		last := agent.chunks[len(agent.chunks)-1]
		w.agentIndex.Remove(last)
		agent.chunks = agent.chunks[:len(agent.chunks)-1]
	}
	for len(agent.chunks) < want {
		agent.chunks = append(agent.chunks, &BodyChunk{Owner: agent})
	}
	for i, chunk := range agent.chunks {
		chunk.Start = i * size
		chunk.End = min(chunk.Start+size, segments)
		first := agent.Body.At(chunk.Start)
		bounds := spatial.RectAround(first.X, first.Y, 0)
		for s := chunk.Start + 1; s < chunk.End; s++ {
			p := agent.Body.At(s)
			bounds = bounds.Union(spatial.RectAround(p.X, p.Y, 0))
		}
		chunk.bounds = bounds.Expand(w.cfg.SegmentRadius)
		w.agentIndex.Update(chunk)
	}
}

func (w *World) deindexAgent(agent *Agent, op string) {
	if !w.agentIndex.Remove(agent) {
		simulation.IndexMiss(context.Background(), w.publisher, w.tick, simulation.IndexMissPayload{Entity: "agent", ID: agent.ID, Operation: op}, nil)
	}
	for _, chunk := range agent.chunks {
		w.agentIndex.Remove(chunk)
	}
	agent.chunks = nil
}

// QueryColliders returns every head and body chunk registered in cells
// covered by rect.
func (w *World) QueryColliders(rect spatial.Rect) []Collider {
	return w.agentIndex.Query(rect)
}

// NearbyAgents returns the distinct living agents with a head or body chunk
// in cells covered by the circle.
func (w *World) NearbyAgents(x, y, radius float64) []*Agent {
	found := w.agentIndex.QueryCircle(x, y, radius)
	seen := make(map[*Agent]struct{}, len(found))
	out := make([]*Agent, 0, len(found))
	for _, c := range found {
		owner := c.OwnerAgent()
		if !owner.Alive {
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		out = append(out, owner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SafeSpawnPoint samples points inside the arena until one has no agent head
// within the spawn buffer. The last candidate is returned if none qualifies.
func (w *World) SafeSpawnPoint() Point {
	limit := math.Max(0, w.cfg.WorldRadius-w.cfg.SpawnMargin)
	var candidate Point
	for attempt := 0; attempt < w.cfg.SpawnAttempts; attempt++ {
		candidate = RandomPointInDisc(w.rng, limit)
		if w.spawnClear(candidate) {
			return candidate
		}
	}
	return candidate
}

func (w *World) spawnClear(p Point) bool {
	buffer := w.cfg.SpawnBuffer
	for _, c := range w.agentIndex.QueryCircle(p.X, p.Y, buffer) {
		a, ok := c.(*Agent)
		if !ok || !a.Alive {
			continue
		}
		if math.Hypot(a.X-p.X, a.Y-p.Y) < buffer {
			return false
		}
	}
	return true
}

// Food looks up a food item by id.
func (w *World) Food(id string) (*Food, bool) {
	f, ok := w.food[id]
	return f, ok
}

// FoodCount reports the number of registered food items.
func (w *World) FoodCount() int { return len(w.food) }

// EachFood visits every food item until fn returns false.
func (w *World) EachFood(fn func(*Food) bool) {
	for _, f := range w.food {
		if !fn(f) {
			return
		}
	}
}

// WanderingFood returns the moving food items sorted by id.
func (w *World) WanderingFood() []*Food {
	out := make([]*Food, 0, len(w.wanderers))
	for _, f := range w.wanderers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QueryFood returns food registered in cells covered by rect.
func (w *World) QueryFood(rect spatial.Rect) []*Food {
	return w.foodIndex.Query(rect)
}

// CreateFood registers a food item of the given catalog type at (x, y).
// Out-of-range types are clamped into the catalog.
func (w *World) CreateFood(x, y float64, typeIndex int) *Food {
	if typeIndex < 0 {
		typeIndex = 0
	}
	if typeIndex >= len(FoodTypes) {
		typeIndex = len(FoodTypes) - 1
	}
	def := FoodTypes[typeIndex]

	var f *Food
	if n := len(w.foodPool); n > 0 {
		f = w.foodPool[n-1]
		w.foodPool = w.foodPool[:n-1]
	} else {
		f = &Food{}
	}
	w.nextFoodID++
	*f = Food{
		ID:        "f" + strconv.FormatUint(w.nextFoodID, 36),
		X:         x,
		Y:         y,
		Radius:    def.Radius,
		Score:     def.Score,
		Type:      typeIndex,
		Color:     foodColor(w.rng, def.Score),
		Glow:      def.Glow,
		Effect:    def.Effect,
		SpawnedAt: w.Now(),
	}
	if def.Wanders {
		f.Wander = &Wander{Heading: RandomAngle(w.rng), Speed: w.cfg.WanderSpeed}
		w.wanderers[f.ID] = f
	}
	w.food[f.ID] = f
	w.foodIndex.Insert(f)
	return f
}

// CreateTrailFood registers expiring food dropped behind a boosting agent.
func (w *World) CreateTrailFood(x, y float64) *Food {
	f := w.CreateFood(x, y, TrailFoodType)
	f.Expires = true
	return f
}

// SpawnFood places a random catalog item at a random point in the arena.
func (w *World) SpawnFood() *Food {
	p := RandomPointInDisc(w.rng, math.Max(0, w.cfg.WorldRadius-w.cfg.SpawnMargin))
	return w.CreateFood(p.X, p.Y, w.randomFoodType())
}

// MoveFood repositions a food item and re-registers it.
func (w *World) MoveFood(f *Food, x, y float64) {
	f.X, f.Y = x, y
	w.foodIndex.Update(f)
}

// RemoveFood deregisters a food item and returns it to the free-list.
func (w *World) RemoveFood(id string) bool {
	f, ok := w.food[id]
	if !ok {
		return false
	}
	if !w.foodIndex.Remove(f) {
		simulation.IndexMiss(context.Background(), w.publisher, w.tick, simulation.IndexMissPayload{Entity: "food", ID: id, Operation: "remove_food"}, nil)
	}
	delete(w.food, id)
	delete(w.wanderers, id)
	*f = Food{}
	w.foodPool = append(w.foodPool, f)
	return true
}
