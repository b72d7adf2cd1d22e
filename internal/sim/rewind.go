package sim

import (
	"time"

	"snake-arena/server/internal/ring"
	"snake-arena/server/internal/world"
)

// RewindHead estimates a head position at time at by linear interpolation
// over a newest-first history. Targets outside the recorded window clamp to
// the nearest end. It reports false for an empty history.
func RewindHead(history *ring.Deque[world.Sample], at time.Time) (world.Point, bool) {
	n := history.Len()
	if n == 0 {
		return world.Point{}, false
	}
	newest := history.At(0)
	if !at.Before(newest.At) {
		return world.Point{X: newest.X, Y: newest.Y}, true
	}
	oldest := history.At(n - 1)
	if !at.After(oldest.At) {
		return world.Point{X: oldest.X, Y: oldest.Y}, true
	}
	for i := 0; i < n-1; i++ {
		newer := history.At(i)
		older := history.At(i + 1)
		if at.After(newer.At) || at.Before(older.At) {
			continue
		}
		span := newer.At.Sub(older.At)
		if span <= 0 {
			return world.Point{X: newer.X, Y: newer.Y}, true
		}
		t := float64(at.Sub(older.At)) / float64(span)
		return world.Point{
			X: older.X + (newer.X-older.X)*t,
			Y: older.Y + (newer.Y-older.Y)*t,
		}, true
	}
	return world.Point{X: oldest.X, Y: oldest.Y}, true
}

// rewound is an agent's head and body translated rigidly to a past head
// position.
type rewound struct {
	agent *world.Agent
	head  world.Point
	dx    float64
	dy    float64
}

func rewindAgent(a *world.Agent, at time.Time) rewound {
	head, ok := RewindHead(a.History, at)
	if !ok {
		head = a.Head()
	}
	return rewound{agent: a, head: head, dx: head.X - a.X, dy: head.Y - a.Y}
}

// Segment returns body segment i shifted by the rewind offset.
func (r rewound) Segment(i int) world.Point {
	p := r.agent.Body.At(i)
	return world.Point{X: p.X + r.dx, Y: p.Y + r.dy}
}
