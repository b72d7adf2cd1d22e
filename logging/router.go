package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads wall time.
var SystemClock Clock = ClockFunc(time.Now)

// Sink receives events from a dedicated worker goroutine. Write is never
// called concurrently for the same sink.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to sinks without blocking the
// simulation. Publish never waits: a full queue drops the event and counts it.
type Router struct {
	queue    chan Event
	workers  []*sinkWorker
	clock    Clock
	fallback *log.Logger

	minSeverity Severity
	minimums    map[string]Severity
	fields      map[string]any
	dropWarn    time.Duration

	stop      chan struct{}
	closed    atomic.Bool
	dispatch  sync.WaitGroup
	delivered sync.WaitGroup

	eventsTotal   atomic.Uint64
	droppedTotal  atomic.Uint64
	filteredTotal atomic.Uint64
	nextDropLog   atomic.Int64
}

// RouterStats counts events accepted by the router, events dropped because
// the queue was full, and events filtered by severity. Sinks lists backlog
// drops and write failures per sink.
type RouterStats struct {
	EventsTotal   uint64      `json:"eventsTotal"`
	DroppedTotal  uint64      `json:"droppedTotal"`
	FilteredTotal uint64      `json:"filteredTotal"`
	Sinks         []SinkStats `json:"sinks,omitempty"`
}

type SinkStats struct {
	Name     string `json:"name"`
	Dropped  uint64 `json:"dropped"`
	Failures uint64 `json:"failures"`
}

const (
	defaultQueueSize  = 512
	minSinkBacklog    = 32
	maxSinkBacklog    = 1024
	defaultDropWarn   = 5 * time.Second
	maxRetryDelayStep = 5
)

// NewRouter starts the dispatcher and one worker per sink. Sinks whose name
// is missing from a non-empty cfg.EnabledSinks are skipped.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock
	}
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	dropWarn := cfg.DropWarnInterval
	if dropWarn <= 0 {
		dropWarn = defaultDropWarn
	}
	r := &Router{
		queue:       make(chan Event, queueSize),
		clock:       clock,
		fallback:    log.New(os.Stderr, "[logging] ", log.LstdFlags),
		minSeverity: cfg.MinimumSeverity,
		minimums:    cfg.cloneCategories(),
		fields:      cfg.CloneFields(),
		dropWarn:    dropWarn,
		stop:        make(chan struct{}),
	}

	backlog := min(max(queueSize, minSinkBacklog), maxSinkBacklog)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		if len(cfg.EnabledSinks) > 0 && !cfg.HasSink(named.Name) {
			continue
		}
		r.workers = append(r.workers, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			events:   make(chan Event, backlog),
			fallback: r.fallback,
		})
	}

	for _, worker := range r.workers {
		r.delivered.Add(1)
		go func(w *sinkWorker) {
			defer r.delivered.Done()
			w.run()
		}(worker)
	}
	r.dispatch.Add(1)
	go r.dispatchLoop()
	return r, nil
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped(event)
	}
}

// Close stops accepting events, delivers what is queued and closes every
// sink. A second call waits for ctx and returns its error.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)

	done := make(chan struct{})
	go func() {
		r.dispatch.Wait()
		r.delivered.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, worker := range r.workers {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:   r.eventsTotal.Load(),
		DroppedTotal:  r.droppedTotal.Load(),
		FilteredTotal: r.filteredTotal.Load(),
	}
	for _, worker := range r.workers {
		stats.Sinks = append(stats.Sinks, SinkStats{
			Name:     worker.name,
			Dropped:  worker.dropped.Load(),
			Failures: worker.failed.Load(),
		})
	}
	return stats
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, worker := range r.workers {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

func (r *Router) dispatchLoop() {
	defer r.dispatch.Done()
	defer func() {
		for _, worker := range r.workers {
			close(worker.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Severity < r.minimumFor(event.Category) {
		r.filteredTotal.Add(1)
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = r.withFields(event)
	r.eventsTotal.Add(1)
	for _, worker := range r.workers {
		worker.offer(copyEvent(event))
	}
}

func (r *Router) withFields(event Event) Event {
	if len(r.fields) == 0 {
		return event
	}
	event = copyEvent(event)
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(r.fields))
	}
	for k, v := range r.fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

func (r *Router) minimumFor(category string) Severity {
	if level, ok := r.minimums[category]; ok {
		return level
	}
	return r.minSeverity
}

func (r *Router) dropped(event Event) {
	r.droppedTotal.Add(1)
	now := time.Now().UnixNano()
	next := r.nextDropLog.Load()
	if now < next {
		return
	}
	if r.nextDropLog.CompareAndSwap(next, now+r.dropWarn.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger

	failures  int
	nextRetry time.Time
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.events <- event:
	default:
		if w.dropped.Add(1) == 1 {
			w.fallback.Printf("sink %s backlog full, dropping event type=%s", w.name, event.Type)
		}
	}
}

// run writes events until the channel closes. After a failed write the
// worker backs off exponentially, up to 32s, before the next attempt.
func (w *sinkWorker) run() {
	for event := range w.events {
		if wait := time.Until(w.nextRetry); w.failures > 0 && wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			w.failures++
			w.failed.Add(1)
			delay := time.Duration(1<<min(w.failures, maxRetryDelayStep)) * time.Second
			w.nextRetry = time.Now().Add(delay)
			w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
			continue
		}
		w.failures = 0
		w.nextRetry = time.Time{}
	}
}
