package delta

import "sort"

// AgentUpdate carries only the allow-listed fields that changed.
type AgentUpdate struct {
	ID       string   `json:"id"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Angle    *float64 `json:"angle,omitempty"`
	Length   *float64 `json:"length,omitempty"`
	Radius   *float64 `json:"radius,omitempty"`
	Boosting *bool    `json:"boosting,omitempty"`
	Ping     *int64   `json:"ping,omitempty"`
	Color    *string  `json:"color,omitempty"`
}

// PositionUpdate is the update shape for food and powerups.
type PositionUpdate struct {
	ID string   `json:"id"`
	X  *float64 `json:"x,omitempty"`
	Y  *float64 `json:"y,omitempty"`
}

type AgentDelta struct {
	Added   []AgentState  `json:"added,omitempty"`
	Updated []AgentUpdate `json:"updated,omitempty"`
	Removed []string      `json:"removed,omitempty"`
}

type FoodDelta struct {
	Added   []FoodState      `json:"added,omitempty"`
	Updated []PositionUpdate `json:"updated,omitempty"`
	Removed []string         `json:"removed,omitempty"`
}

type PowerupDelta struct {
	Added   []PowerupState   `json:"added,omitempty"`
	Updated []PositionUpdate `json:"updated,omitempty"`
	Removed []string         `json:"removed,omitempty"`
}

// Delta is everything a viewer needs to bring its mirror up to a frame.
// Full deltas replace the mirror instead of patching it.
type Delta struct {
	Tick     uint64       `json:"tick"`
	Full     bool         `json:"full,omitempty"`
	Players  AgentDelta   `json:"players"`
	Food     FoodDelta    `json:"food"`
	Powerups PowerupDelta `json:"powerups"`
}

// Empty reports whether sending d would change nothing.
func (d Delta) Empty() bool {
	if d.Full {
		return false
	}
	return len(d.Players.Added)+len(d.Players.Updated)+len(d.Players.Removed)+
		len(d.Food.Added)+len(d.Food.Updated)+len(d.Food.Removed)+
		len(d.Powerups.Added)+len(d.Powerups.Updated)+len(d.Powerups.Removed) == 0
}

// Baseline mirrors what one viewer has been told. It is owned by that
// viewer's session and needs no locking of its own.
type Baseline struct {
	ready    bool
	agents   map[string]AgentState
	food     map[string]FoodState
	powerups map[string]PowerupState
}

// NewBaseline returns an empty baseline; the first diff against it is full.
func NewBaseline() *Baseline {
	b := &Baseline{}
	b.Reset()
	return b
}

// Reset forgets everything so the next diff is full.
func (b *Baseline) Reset() {
	b.ready = false
	b.agents = make(map[string]AgentState)
	b.food = make(map[string]FoodState)
	b.powerups = make(map[string]PowerupState)
}

// Ready reports whether the baseline holds a full state.
func (b *Baseline) Ready() bool { return b.ready }

// Agents returns a copy of the mirrored agents.
func (b *Baseline) Agents() map[string]AgentState { return copyMap(b.agents) }

// Food returns a copy of the mirrored food.
func (b *Baseline) Food() map[string]FoodState { return copyMap(b.food) }

// Powerups returns a copy of the mirrored powerups.
func (b *Baseline) Powerups() map[string]PowerupState { return copyMap(b.powerups) }

// Diff computes the delta from b to frame and advances b to match.
func Diff(frame *Frame, b *Baseline) Delta {
	d := Delta{Tick: frame.Tick}
	if !b.ready {
		d.Full = true
		b.agents = copyMap(frame.Agents)
		b.food = copyMap(frame.Food)
		b.powerups = copyMap(frame.Powerups)
		b.ready = true
		d.Players.Added = sortedValues(frame.Agents)
		d.Food.Added = sortedValues(frame.Food)
		d.Powerups.Added = sortedValues(frame.Powerups)
		return d
	}

	for _, id := range sortedKeys(frame.Agents) {
		cur := frame.Agents[id]
		prev, known := b.agents[id]
		if !known {
			d.Players.Added = append(d.Players.Added, cur)
			b.agents[id] = cur
			continue
		}
		if update, changed := diffAgent(prev, cur); changed {
			d.Players.Updated = append(d.Players.Updated, update)
			b.agents[id] = applyAgentUpdate(prev, update)
		}
	}
	d.Players.Removed = removedKeys(b.agents, frame.Agents)

	for _, id := range sortedKeys(frame.Food) {
		cur := frame.Food[id]
		prev, known := b.food[id]
		if !known {
			d.Food.Added = append(d.Food.Added, cur)
			b.food[id] = cur
			continue
		}
		if update, changed := diffPosition(id, prev.X, prev.Y, cur.X, cur.Y); changed {
			d.Food.Updated = append(d.Food.Updated, update)
			prev.X, prev.Y = cur.X, cur.Y
			b.food[id] = prev
		}
	}
	d.Food.Removed = removedKeys(b.food, frame.Food)

	for _, id := range sortedKeys(frame.Powerups) {
		cur := frame.Powerups[id]
		prev, known := b.powerups[id]
		if !known {
			d.Powerups.Added = append(d.Powerups.Added, cur)
			b.powerups[id] = cur
			continue
		}
		if update, changed := diffPosition(id, prev.X, prev.Y, cur.X, cur.Y); changed {
			d.Powerups.Updated = append(d.Powerups.Updated, update)
			prev.X, prev.Y = cur.X, cur.Y
			b.powerups[id] = prev
		}
	}
	d.Powerups.Removed = removedKeys(b.powerups, frame.Powerups)
	return d
}

func diffAgent(prev, cur AgentState) (AgentUpdate, bool) {
	u := AgentUpdate{ID: cur.ID}
	changed := false
	float := func(dst **float64, a, b float64) {
		if a != b {
			v := b
			*dst = &v
			changed = true
		}
	}
	float(&u.X, prev.X, cur.X)
	float(&u.Y, prev.Y, cur.Y)
	float(&u.Angle, prev.Angle, cur.Angle)
	float(&u.Length, prev.Length, cur.Length)
	float(&u.Radius, prev.Radius, cur.Radius)
	if prev.Boosting != cur.Boosting {
		v := cur.Boosting
		u.Boosting = &v
		changed = true
	}
	if prev.Ping != cur.Ping {
		v := cur.Ping
		u.Ping = &v
		changed = true
	}
	if prev.Color != cur.Color {
		v := cur.Color
		u.Color = &v
		changed = true
	}
	return u, changed
}

func diffPosition(id string, px, py, x, y float64) (PositionUpdate, bool) {
	u := PositionUpdate{ID: id}
	if px != x {
		v := x
		u.X = &v
	}
	if py != y {
		v := y
		u.Y = &v
	}
	return u, u.X != nil || u.Y != nil
}

// removedKeys deletes baseline entries absent from current and returns
// their ids in order.
func removedKeys[V any](baseline map[string]V, current map[string]V) []string {
	var removed []string
	for id := range baseline {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		delete(baseline, id)
	}
	return removed
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues[V any](m map[string]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
