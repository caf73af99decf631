package watcher

import (
	"sync"
	"time"
)

// EventType is the kind of change reported for an inbox file.
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "CREATE"
	case EventModify:
		return "MODIFY"
	case EventDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a debounced change to one file.
type FileEvent struct {
	Path      string
	EventType EventType
	Timestamp time.Time
}

// coalesce merges a new event type into a pending one.
func coalesce(pending, next EventType) EventType {
	switch {
	case next == EventDelete:
		return EventDelete
	case pending == EventDelete:
		// Removed then recreated, as editors do on atomic save.
		return EventModify
	case pending == EventCreate:
		return EventCreate
	default:
		return next
	}
}

// Debouncer collects rapid events per path and emits one event per path once
// the path has been quiet for the delay.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*pendingEvent
	output  chan FileEvent

	// sendMu guards output against being closed during a send.
	sendMu   sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

type pendingEvent struct {
	event FileEvent
	timer *time.Timer
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(delayMs int) *Debouncer {
	return &Debouncer{
		delay:   time.Duration(delayMs) * time.Millisecond,
		pending: make(map[string]*pendingEvent),
		output:  make(chan FileEvent, 100),
		stopCh:  make(chan struct{}),
	}
}

// Events returns the channel of debounced events. It is closed by Stop.
func (d *Debouncer) Events() <-chan FileEvent {
	return d.output
}

// Add records an event for path and restarts its quiet period.
func (d *Debouncer) Add(path string, eventType EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	now := time.Now()
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
		p.event.EventType = coalesce(p.event.EventType, eventType)
		p.event.Timestamp = now
		p.timer = time.AfterFunc(d.delay, func() { d.emit(path) })
		return
	}

	d.pending[path] = &pendingEvent{
		event: FileEvent{Path: path, EventType: eventType, Timestamp: now},
		timer: time.AfterFunc(d.delay, func() { d.emit(path) }),
	}
}

func (d *Debouncer) emit(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if ok {
		delete(d.pending, path)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	d.sendMu.RLock()
	defer d.sendMu.RUnlock()
	select {
	case <-d.stopCh:
		return
	default:
	}
	select {
	case d.output <- p.event:
	case <-d.stopCh:
	}
}

// Flush emits every pending event now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.emit(path)
	}
}

// Stop drops pending events and closes the event channel. It is safe to call
// more than once.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)

		d.mu.Lock()
		for _, p := range d.pending {
			p.timer.Stop()
		}
		d.pending = make(map[string]*pendingEvent)
		d.mu.Unlock()

		d.sendMu.Lock()
		close(d.output)
		d.sendMu.Unlock()
	})
}

// PendingCount returns the number of paths waiting to be emitted.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
