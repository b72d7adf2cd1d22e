package sim

import "github.com/sasha-s/go-deadlock"

const (
	commandBufferOccupancyMetricKey = "sim_command_buffer_occupancy"
	commandBufferHighWaterMetricKey = "sim_command_buffer_high_water"
	commandBufferOverflowMetricKey  = "sim_command_buffer_overflow_total"
)

// CommandBuffer stages commands between network goroutines and the tick in a
// fixed set of slots. Producers may be concurrent; Drain is called only by the
// engine.
type CommandBuffer struct {
	mu        deadlock.Mutex
	slots     []Command
	count     int
	highWater int
	metrics   telemetryMetrics
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewCommandBuffer allocates capacity slots. metrics may be nil.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		slots:   make([]Command, capacity),
		metrics: metrics,
	}
}

func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.slots)
}

// Push stages a command, returning false if every slot is taken.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.slots) {
		if b.metrics != nil {
			b.metrics.Add(commandBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.slots[b.count] = cmd
	b.count++
	if b.count > b.highWater {
		b.highWater = b.count
		if b.metrics != nil {
			b.metrics.Store(commandBufferHighWaterMetricKey, uint64(b.highWater))
		}
	}
	b.publishOccupancy()
	return true
}

// Drain empties the buffer in arrival order. Commands sharing an actor and type
// collapse into the newest one, kept at the slot of the first.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	type key struct {
		actor string
		typ   CommandType
	}
	seen := make(map[key]int, b.count)
	out := make([]Command, 0, b.count)
	for i := 0; i < b.count; i++ {
		cmd := b.slots[i]
		b.slots[i] = Command{}
		k := key{actor: cmd.ActorID, typ: cmd.Type}
		if pos, ok := seen[k]; ok {
			out[pos] = cmd
			continue
		}
		seen[k] = len(out)
		out = append(out, cmd)
	}
	b.count = 0
	b.publishOccupancy()
	return out
}

// Discard removes every staged command from actorID and reports how many
// were dropped. Order of the remaining commands is preserved.
func (b *CommandBuffer) Discard(actorID string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := 0
	for i := 0; i < b.count; i++ {
		cmd := b.slots[i]
		if cmd.ActorID == actorID {
			continue
		}
		b.slots[kept] = cmd
		kept++
	}
	removed := b.count - kept
	for i := kept; i < b.count; i++ {
		b.slots[i] = Command{}
	}
	b.count = kept
	if removed > 0 {
		b.publishOccupancy()
	}
	return removed
}

func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// HighWater reports the deepest the buffer has been since construction.
func (b *CommandBuffer) HighWater() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highWater
}

func (b *CommandBuffer) publishOccupancy() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.count))
}
