// Package journey owns the voyage phase state machine. A single Journey value
// holds all mutable voyage state; it is advanced only by scheduler ticks and
// by externally supplied decisions and signals. The caller must serialize
// those against each other — Journey methods are not safe for concurrent use.
// The engine runs them from one actor goroutine.
package journey

import (
	"errors"
	"fmt"

	"github.com/meridianops/voyagesim/internal/deviation"
	"github.com/meridianops/voyagesim/internal/geo"
	"github.com/meridianops/voyagesim/internal/sink"
	"github.com/meridianops/voyagesim/pkg/core"
)

// ErrInvalidTransition is returned when a decision or signal arrives in a
// phase that does not expect it. The journey state is left untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrNoRoute is returned when a journey is configured without a route.
var ErrNoRoute = errors.New("no route configured")

// Defaults for the derived-time and approach parameters.
const (
	DefaultApproachPct = 95.0
	DefaultStepsPerDay = 24 // one step is one simulated hour
)

// Clock is the slice of the scheduler the journey drives: it freezes and
// unfreezes logical progress around pause phases and stops emission on
// terminal phases.
type Clock interface {
	Pause() error
	Resume() error
	Stop()
}

// State is the snapshot of a journey at a point in simulated time. All
// derived fields are computed from the same interpolation pass, so a snapshot
// is never an inconsistent mix of tick results.
type State struct {
	RouteID         string
	Step            uint64
	TotalSteps      uint64
	ProgressPct     float64
	SegmentIndex    int
	SegmentFraction float64
	Lat             float64
	Lon             float64
	Phase           core.Phase
	DeviationActive bool
	PausedAtStep    uint64
	VoyageDay       int
	DockingDelays   int
}

// Config assembles a journey's collaborators and parameters.
type Config struct {
	Route       *core.Route
	TotalSteps  uint64
	ApproachPct float64 // progress percentage that triggers the port approach pause; default 95
	StepsPerDay uint64  // simulated steps per voyage day; default 24
	Detector    *deviation.Detector
	Clock       Clock
	Sink        *sink.Sink
}

// Journey is the phase state machine for one voyage.
type Journey struct {
	route       *core.Route
	totalSteps  uint64
	approachPct float64
	stepsPerDay uint64
	detector    *deviation.Detector
	clock       Clock
	events      *sink.Sink

	state             State
	deviationRecord   *core.DeviationRecord
	deviationFired    bool
	approachTriggered bool
}

// New validates the config and builds an idle journey.
func New(cfg Config) (*Journey, error) {
	if cfg.Route == nil {
		return nil, ErrNoRoute
	}
	if cfg.TotalSteps == 0 {
		return nil, geo.ErrInvalidTotalSteps
	}
	if cfg.ApproachPct <= 0 {
		cfg.ApproachPct = DefaultApproachPct
	}
	if cfg.StepsPerDay == 0 {
		cfg.StepsPerDay = DefaultStepsPerDay
	}
	if cfg.Detector == nil {
		cfg.Detector = deviation.NewDetector(0, deviation.Offset{})
	}

	start := cfg.Route.WaypointAt(0)
	return &Journey{
		route:       cfg.Route,
		totalSteps:  cfg.TotalSteps,
		approachPct: cfg.ApproachPct,
		stepsPerDay: cfg.StepsPerDay,
		detector:    cfg.Detector,
		clock:       cfg.Clock,
		events:      cfg.Sink,
		state: State{
			RouteID:    cfg.Route.ID(),
			TotalSteps: cfg.TotalSteps,
			Phase:      core.PhaseIdle,
			Lat:        start.Lat,
			Lon:        start.Lon,
			VoyageDay:  1,
		},
	}, nil
}

// State returns a copy of the current journey state.
func (j *Journey) State() State { return j.state }

// Route returns the journey's route.
func (j *Journey) Route() *core.Route { return j.route }

// Deviation returns the active deviation record, or nil.
func (j *Journey) Deviation() *core.DeviationRecord {
	if j.deviationRecord == nil {
		return nil
	}
	rec := *j.deviationRecord
	return &rec
}

// StartJourney transitions Idle to Transit and resets the step counter.
// The caller starts the scheduler after this returns.
func (j *Journey) StartJourney() error {
	if j.state.Phase != core.PhaseIdle {
		return fmt.Errorf("%w: start in phase %s", ErrInvalidTransition, j.state.Phase)
	}
	j.state.Step = 0
	j.state.ProgressPct = 0
	j.deviationFired = false
	j.approachTriggered = false
	j.transition(core.PhaseTransit)
	j.logf("voyage departed on route %s (%s)", j.route.Name(), j.route.RiskTier())
	return nil
}

// Tick advances the journey by one scheduler step. Ticks arriving outside
// Transit are ignored: pause phases freeze the clock and terminal phases
// process nothing.
//
// Check order within a tick is normative: the deviation rule runs first,
// then the port-approach threshold, and only then final-step completion, so
// reaching totalSteps on the same tick as the 95% threshold still enters
// PortApproachPause rather than skipping straight to Docked.
func (j *Journey) Tick(step uint64) {
	if j.state.Phase != core.PhaseTransit {
		return
	}

	fix, err := geo.Interpolate(j.route, step, j.totalSteps)
	if err != nil {
		// Malformed steps cannot come from a well-behaved scheduler; drop
		// the tick rather than corrupt the state.
		j.logf("dropped tick %d: %v", step, err)
		return
	}

	progress := float64(step) / float64(j.totalSteps) * 100
	day := int(step/j.stepsPerDay) + 1
	dayAdvanced := day > j.state.VoyageDay

	// Apply the full snapshot before emitting anything.
	j.state.Step = step
	j.state.ProgressPct = progress
	j.state.SegmentIndex = fix.SegmentIndex
	j.state.SegmentFraction = fix.Fraction
	j.state.Lat = fix.Lat
	j.state.Lon = fix.Lon
	j.state.VoyageDay = day

	j.emit(core.NewPositionEvent(step, core.PositionUpdate{
		SegmentIndex: fix.SegmentIndex,
		Fraction:     fix.Fraction,
		Lat:          fix.Lat,
		Lon:          fix.Lon,
		ProgressPct:  progress,
		VoyageDay:    day,
	}))
	if dayAdvanced {
		j.logf("day %d at sea", day)
	}

	// The fired latch spans the whole attempt: after a resume decision
	// clears DeviationActive the fraction is still past the threshold, and
	// without the latch the rule would fire again on the very next tick.
	if rec, fired := j.detector.Evaluate(fix, step, j.state.DeviationActive || j.deviationFired); fired {
		j.deviationFired = true
		j.deviationRecord = rec
		j.state.DeviationActive = true
		j.pauseClock(step)
		j.emit(core.NewDeviationEvent(step, *rec))
		j.transition(core.PhaseDeviationPause)
		j.logf("course deviation detected at step %d: expected (%.4f, %.4f), observed (%.4f, %.4f)",
			step, rec.Expected.Lat, rec.Expected.Lon, rec.Observed.Lat, rec.Observed.Lon)
		return
	}

	if progress >= j.approachPct && !j.approachTriggered {
		j.approachTriggered = true
		j.pauseClock(step)
		j.transition(core.PhasePortApproach)
		j.logf("port approach at %.1f%% progress, awaiting berth assessment", progress)
		return
	}

	if step >= j.totalSteps {
		j.complete()
	}
}

// Decide applies an external decision. Decisions in the wrong phase return
// ErrInvalidTransition and mutate nothing.
func (j *Journey) Decide(d core.Decision) error {
	switch {
	case j.state.Phase == core.PhaseDeviationPause && d == core.DecisionAnalyze:
		j.transition(core.PhaseAnalysisPending)
		j.logf("deviation analysis requested")

	case j.state.Phase == core.PhaseDeviationPause && d == core.DecisionContinueMonitoring:
		j.clearDeviation()
		j.resumeClock()
		j.transition(core.PhaseTransit)
		j.logf("continuing with monitoring, no analysis recorded")

	case j.state.Phase == core.PhaseAnalysisComplete && d == core.DecisionContinueSameRoute:
		j.clearDeviation()
		j.resumeClock()
		j.transition(core.PhaseTransit)
		j.logf("resuming original route from step %d", j.state.PausedAtStep)

	case j.state.Phase == core.PhaseDockingPending && d == core.DecisionAcceptDocking:
		j.complete()

	case j.state.Phase == core.PhaseDockingPending && d == core.DecisionDelayDocking:
		j.state.DockingDelays++
		j.logf("docking delayed (%d so far), holding position", j.state.DockingDelays)

	default:
		return fmt.Errorf("%w: decision %q in phase %s", ErrInvalidTransition, d, j.state.Phase)
	}
	return nil
}

// Signal applies an external completion notification.
func (j *Journey) Signal(s core.Signal) error {
	switch {
	case j.state.Phase == core.PhaseAnalysisPending && s == core.SignalAnalysisComplete:
		j.transition(core.PhaseAnalysisComplete)
		j.logf("deviation analysis complete, awaiting routing decision")

	case j.state.Phase == core.PhasePortApproach && s == core.SignalAssessmentComplete:
		j.transition(core.PhaseDockingPending)
		j.logf("berth assessment complete, docking recommended")

	default:
		return fmt.Errorf("%w: signal %q in phase %s", ErrInvalidTransition, s, j.state.Phase)
	}
	return nil
}

// Abort stops the clock and moves to the terminal Aborted phase from any
// non-terminal phase. No rollback is needed: state only ever advances.
func (j *Journey) Abort() error {
	if j.state.Phase.Terminal() {
		return fmt.Errorf("%w: abort in phase %s", ErrInvalidTransition, j.state.Phase)
	}
	if j.clock != nil {
		j.clock.Stop()
	}
	j.transition(core.PhaseAborted)
	j.logf("voyage aborted at step %d", j.state.Step)
	return nil
}

// complete enters the terminal Docked phase and stops the scheduler.
func (j *Journey) complete() {
	j.state.ProgressPct = 100
	if j.clock != nil {
		j.clock.Stop()
	}
	j.transition(core.PhaseDocked)
	j.logf("vessel docked, voyage complete")
}

func (j *Journey) clearDeviation() {
	j.deviationRecord = nil
	j.state.DeviationActive = false
}

func (j *Journey) pauseClock(step uint64) {
	j.state.PausedAtStep = step
	if j.clock == nil {
		return
	}
	// Ticks outside Transit are dropped anyway, so a failed pause cannot
	// corrupt the state; it still goes on the record.
	if err := j.clock.Pause(); err != nil {
		j.logf("clock pause failed at step %d: %v", step, err)
	}
}

func (j *Journey) resumeClock() {
	if j.clock == nil {
		return
	}
	if err := j.clock.Resume(); err != nil {
		j.logf("clock resume failed at step %d: %v", j.state.Step, err)
	}
}

func (j *Journey) transition(to core.Phase) {
	from := j.state.Phase
	j.state.Phase = to
	j.emit(core.NewPhaseEvent(j.state.Step, from, to))
}

func (j *Journey) logf(format string, args ...any) {
	j.emit(core.NewLogEvent(j.state.Step, fmt.Sprintf(format, args...)))
}

func (j *Journey) emit(e core.Event) {
	if j.events != nil {
		j.events.Emit(e)
	}
}
