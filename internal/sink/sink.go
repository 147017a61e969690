// Package sink provides the append-only ordered log of domain events produced
// by the engine. Emit never fails; events are observed in emission order by a
// single consumer. Broadcast to multiple collaborators is the consumer's
// concern, not the sink's.
package sink

import (
	"sync"

	"github.com/meridianops/voyagesim/internal/channel"
	"github.com/meridianops/voyagesim/pkg/core"
)

// DefaultBufferSize is the subscriber channel capacity.
const DefaultBufferSize = 1024

// Sink accumulates events and optionally pushes them to one subscriber channel.
type Sink struct {
	mu     sync.Mutex
	events []core.Event
	sub    channel.Channel[core.Event]
	closed bool
}

// New creates an empty sink.
func New() *Sink {
	return &Sink{events: make([]core.Event, 0)}
}

// Emit appends an event. Never fails. If a subscriber is attached the event
// is also pushed to its channel; a subscriber that stops draining loses the
// overflow rather than blocking the emitter.
func (s *Sink) Emit(e core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)

	if s.sub != nil && !s.closed {
		s.sub.TrySend(e)
	}
}

// Subscribe attaches the single subscriber channel, creating it on first use.
// Events emitted before Subscribe remain retrievable via Drain.
func (s *Sink) Subscribe() <-chan core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		s.sub = channel.New[core.Event](DefaultBufferSize)
	}
	return s.sub.Receive()
}

// Drain returns all accumulated events in emission order and clears the log.
func (s *Sink) Drain() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.events
	s.events = make([]core.Event, 0, cap(s.events))
	return result
}

// Len returns the number of accumulated (undrained) events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Close closes the subscriber channel, if any. Emit remains safe after Close;
// further events are only appended to the log.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sub != nil {
		s.sub.Close()
	}
}
