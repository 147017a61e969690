package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/meridianops/voyagesim/internal/clock"
	"github.com/meridianops/voyagesim/internal/deviation"
	"github.com/meridianops/voyagesim/internal/journey"
	"github.com/meridianops/voyagesim/internal/sink"
	"github.com/meridianops/voyagesim/internal/storage"
	"github.com/meridianops/voyagesim/pkg/core"
)

// ErrSessionClosed is returned when a handle is used after its session was removed.
var ErrSessionClosed = errors.New("session closed")

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdTick
	cmdDecide
	cmdSignal
	cmdAbort
	cmdState
)

type command struct {
	kind     cmdKind
	step     uint64
	decision core.Decision
	signal   core.Signal
	reply    chan response
}

type response struct {
	state journey.State
	dev   *core.DeviationRecord
	err   error
}

// Voyage is the handle for one configured voyage session. All interaction
// with the underlying journey goes through a single actor goroutine, so a
// decision and a tick are never applied concurrently.
type Voyage struct {
	id        string
	createdAt time.Time
	cfg       VoyageConfig
	route     *core.Route

	clock   *clock.Scheduler
	journey *journey.Journey
	events  *sink.Sink
	log     *slog.Logger
	backend storage.Backend

	cmds      chan command
	done      chan struct{}
	recDone   chan struct{}
	closeOnce sync.Once
}

func newVoyage(id string, route *core.Route, cfg VoyageConfig, log *slog.Logger, backend storage.Backend) (*Voyage, error) {
	events := sink.New()
	sched := clock.NewScheduler()

	jny, err := journey.New(journey.Config{
		Route:       route,
		TotalSteps:  cfg.TotalSteps,
		ApproachPct: cfg.ApproachPct,
		StepsPerDay: cfg.StepsPerDay,
		Detector:    deviation.NewDetector(cfg.DeviationThreshold, cfg.DeviationOffset),
		Clock:       sched,
		Sink:        events,
	})
	if err != nil {
		return nil, err
	}

	v := &Voyage{
		id:        id,
		createdAt: time.Now(),
		cfg:       cfg,
		route:     route,
		clock:     sched,
		journey:   jny,
		events:    events,
		log:       log.With("session", id),
		backend:   backend,
		cmds:      make(chan command, 64),
		done:      make(chan struct{}),
		recDone:   make(chan struct{}),
	}

	// The clock posts ticks into the same command channel the decisions use;
	// the blocking send keeps delivery ordered and uncoalesced.
	sched.Subscribe(func(step uint64) {
		select {
		case v.cmds <- command{kind: cmdTick, step: step}:
		case <-v.done:
		}
	})

	if backend != nil {
		go v.recordLoop(events.Subscribe())
	} else {
		close(v.recDone)
	}

	go v.loop()
	return v, nil
}

// ID returns the session identifier.
func (v *Voyage) ID() string { return v.id }

// RouteID returns the configured route's identifier.
func (v *Voyage) RouteID() string { return v.route.ID() }

// CreatedAt returns when the session was configured.
func (v *Voyage) CreatedAt() time.Time { return v.createdAt }

// Events returns the voyage event stream. Single consumer assumed; when a
// storage backend is attached the engine itself is that consumer and
// collaborators should read events through the backend instead.
func (v *Voyage) Events() <-chan core.Event {
	return v.events.Subscribe()
}

// Drain returns and clears all accumulated events in emission order.
func (v *Voyage) Drain() []core.Event {
	return v.events.Drain()
}

// Start transitions the voyage from Idle to Transit and starts the clock.
func (v *Voyage) Start() error {
	return v.send(command{kind: cmdStart}).err
}

// Decide applies an external decision.
func (v *Voyage) Decide(d core.Decision) error {
	return v.send(command{kind: cmdDecide, decision: d}).err
}

// Signal applies an external completion signal.
func (v *Voyage) Signal(s core.Signal) error {
	return v.send(command{kind: cmdSignal, signal: s}).err
}

// Abort moves the voyage to the terminal Aborted phase.
func (v *Voyage) Abort() error {
	return v.send(command{kind: cmdAbort}).err
}

// State returns a snapshot of the journey state.
func (v *Voyage) State() journey.State {
	return v.send(command{kind: cmdState}).state
}

// Deviation returns the active deviation record, or nil.
func (v *Voyage) Deviation() *core.DeviationRecord {
	return v.send(command{kind: cmdState}).dev
}

func (v *Voyage) send(c command) response {
	c.reply = make(chan response, 1)
	select {
	case v.cmds <- c:
	case <-v.done:
		return response{err: ErrSessionClosed}
	}
	select {
	case r := <-c.reply:
		return r
	case <-v.done:
		return response{err: ErrSessionClosed}
	}
}

// loop is the actor goroutine: the only place journey state is touched.
func (v *Voyage) loop() {
	for {
		select {
		case <-v.done:
			return
		case c := <-v.cmds:
			switch c.kind {
			case cmdStart:
				err := v.start()
				c.reply <- response{err: err}
			case cmdTick:
				v.journey.Tick(c.step)
			case cmdDecide:
				c.reply <- response{err: v.journey.Decide(c.decision)}
			case cmdSignal:
				c.reply <- response{err: v.journey.Signal(c.signal)}
			case cmdAbort:
				c.reply <- response{err: v.journey.Abort()}
			case cmdState:
				c.reply <- response{state: v.journey.State(), dev: v.journey.Deviation()}
			}
		}
	}
}

func (v *Voyage) start() error {
	if v.backend != nil {
		meta := core.VoyageMeta{
			SessionID:  v.id,
			RouteID:    v.route.ID(),
			RouteName:  v.route.Name(),
			RiskTier:   v.route.RiskTier(),
			Waypoints:  v.route.Waypoints(),
			TotalSteps: v.cfg.TotalSteps,
			StartedAt:  time.Now(),
		}
		if err := v.backend.StartVoyage(meta); err != nil {
			v.log.Error("failed to start voyage recording", "error", err)
		}
	}
	if err := v.journey.StartJourney(); err != nil {
		return err
	}
	return v.clock.Start(v.cfg.Period, v.cfg.TotalSteps)
}

// recordLoop forwards emitted events to the storage backend. It finalizes the
// recording when a terminal phase change comes through and exits when the
// sink is closed.
func (v *Voyage) recordLoop(sub <-chan core.Event) {
	defer close(v.recDone)
	for e := range sub {
		var err error
		switch e.Kind {
		case core.EventPositionUpdate:
			err = v.backend.RecordPosition(e.Step, *e.Position)
		case core.EventPhaseChanged:
			err = v.backend.RecordPhaseChange(e.Step, *e.Phase)
			if err == nil && e.Phase.To.Terminal() {
				err = v.backend.EndVoyage()
			}
		case core.EventLogLine:
			err = v.backend.RecordLogLine(e.Step, *e.Log)
		case core.EventDeviationDetected:
			err = v.backend.RecordDeviation(e.Step, *e.Deviation)
		}
		if err != nil {
			v.log.Error("failed to record event", "kind", e.Kind, "error", err)
		}
	}
}

// close shuts the actor down. Idempotent; called by the engine on Remove/Close.
func (v *Voyage) close() {
	v.closeOnce.Do(func() {
		v.clock.Stop()
		close(v.done)
		v.events.Close()
		<-v.recDone
	})
}
