// Package clock provides the fixed-period tick scheduler that drives the
// voyage simulation. The scheduler owns the step counter: it emits a
// monotonically increasing step once per period to its subscribers, in order,
// with no skips or duplicates. While paused the ticker keeps firing on real
// time but the step counter is frozen and nothing is delivered.
package clock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Errors returned by the scheduler.
var (
	ErrAlreadyRunning    = errors.New("scheduler is already running")
	ErrNotRunning        = errors.New("scheduler is not running")
	ErrInvalidTotalSteps = errors.New("total steps must be positive")
	ErrInvalidPeriod     = errors.New("tick period must be positive")
)

// Subscriber receives each advanced step synchronously from the tick loop.
type Subscriber func(step uint64)

// Scheduler is the fixed-period tick source.
type Scheduler struct {
	mu         sync.Mutex
	step       uint64
	totalSteps uint64
	period     time.Duration
	running    bool
	paused     bool

	subscribers []Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler() *Scheduler {
	done := make(chan struct{})
	close(done)
	return &Scheduler{done: done}
}

// Subscribe registers a subscriber. Must be called before Start; subscribers
// are invoked from the tick goroutine in registration order.
func (s *Scheduler) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Start begins emitting ticks at the given period until totalSteps is reached
// or Stop is called. Fails fast on malformed parameters.
func (s *Scheduler) Start(period time.Duration, totalSteps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if totalSteps == 0 {
		return ErrInvalidTotalSteps
	}
	if period <= 0 {
		return ErrInvalidPeriod
	}

	s.step = 0
	s.totalSteps = totalSteps
	s.period = period
	s.paused = false
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.ticker = time.NewTicker(period)
	s.done = make(chan struct{})

	go s.run(s.ctx, s.ticker, s.done)
	return nil
}

// run is the tick loop. It is the only writer of the step counter while
// running, which is what guarantees in-order exactly-once delivery.
func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.paused || s.step >= s.totalSteps {
				s.mu.Unlock()
				continue
			}
			s.step++
			step := s.step
			subs := s.subscribers
			s.mu.Unlock()

			for _, fn := range subs {
				fn(step)
			}
		}
	}
}

// Pause freezes the step counter. Ticks still fire on schedule but are no-ops.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.paused = true
	return nil
}

// Resume unfreezes the step counter from wherever Pause left it.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.paused = false
	return nil
}

// Stop terminates tick emission. Idempotent. A tick already being delivered
// may still reach subscribers after Stop returns; consumers in a terminal
// phase ignore it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.ticker.Stop()
}

// Done returns a channel closed when the tick loop has fully exited.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Step returns the current step count.
func (s *Scheduler) Step() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// TotalSteps returns the configured total step count.
func (s *Scheduler) TotalSteps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSteps
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Paused reports whether logical progress is currently frozen.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
