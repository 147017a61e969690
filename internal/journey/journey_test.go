package journey

import (
	"errors"
	"strings"
	"testing"

	"github.com/meridianops/voyagesim/internal/deviation"
	"github.com/meridianops/voyagesim/internal/sink"
	"github.com/meridianops/voyagesim/pkg/core"
)

// fakeClock records pause/resume/stop calls from the journey.
type fakeClock struct {
	pauses  int
	resumes int
	stops   int
}

func (c *fakeClock) Pause() error  { c.pauses++; return nil }
func (c *fakeClock) Resume() error { c.resumes++; return nil }
func (c *fakeClock) Stop()         { c.stops++ }

func atlanticRoute(t *testing.T) *core.Route {
	t.Helper()
	r, err := core.NewRoute("boston-porto", "Boston to Porto", core.RiskModerate, []core.Waypoint{
		{Lat: 42.3601, Lon: -71.0589},
		{Lat: 41.0, Lon: -48.0},
		{Lat: 41.1579, Lon: -8.6291},
	})
	if err != nil {
		t.Fatalf("failed to build route: %v", err)
	}
	return r
}

type fixture struct {
	j     *Journey
	clock *fakeClock
	sink  *sink.Sink
}

func newFixture(t *testing.T, totalSteps uint64) *fixture {
	t.Helper()
	clk := &fakeClock{}
	events := sink.New()
	j, err := New(Config{
		Route:      atlanticRoute(t),
		TotalSteps: totalSteps,
		Detector:   deviation.NewDetector(0.3, deviation.Offset{Lat: 2.5, Lon: -1.8}),
		Clock:      clk,
		Sink:       events,
	})
	if err != nil {
		t.Fatalf("failed to build journey: %v", err)
	}
	return &fixture{j: j, clock: clk, sink: events}
}

// tickUntil advances the journey one step at a time until the phase leaves
// Transit or maxStep is reached. Returns the last applied step.
func (f *fixture) tickUntil(phase core.Phase, maxStep uint64) uint64 {
	var step uint64
	for step = f.j.State().Step + 1; step <= maxStep; step++ {
		f.j.Tick(step)
		if f.j.State().Phase == phase {
			return step
		}
	}
	return step - 1
}

func phasesOf(events []core.Event) []core.PhaseChange {
	var out []core.PhaseChange
	for _, e := range events {
		if e.Kind == core.EventPhaseChanged {
			out = append(out, *e.Phase)
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{TotalSteps: 10}); !errors.Is(err, ErrNoRoute) {
		t.Errorf("missing route: got %v", err)
	}
	if _, err := New(Config{Route: atlanticRoute(t)}); err == nil {
		t.Error("zero totalSteps accepted")
	}
}

func TestNew_InitialState(t *testing.T) {
	f := newFixture(t, 200)
	st := f.j.State()
	if st.Phase != core.PhaseIdle {
		t.Errorf("phase: got %s", st.Phase)
	}
	if st.Lat != 42.3601 || st.Lon != -71.0589 {
		t.Errorf("initial position: got (%v, %v)", st.Lat, st.Lon)
	}
	if st.VoyageDay != 1 {
		t.Errorf("initial voyage day: got %d", st.VoyageDay)
	}
}

func TestStartJourney(t *testing.T) {
	f := newFixture(t, 200)
	if err := f.j.StartJourney(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseTransit {
		t.Errorf("phase after start: got %s", f.j.State().Phase)
	}

	// double start is invalid
	if err := f.j.StartJourney(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start: got %v", err)
	}
}

func TestTick_IgnoredOutsideTransit(t *testing.T) {
	f := newFixture(t, 200)

	// idle: nothing happens
	f.j.Tick(1)
	if f.j.State().Step != 0 {
		t.Error("tick processed while idle")
	}

	f.j.StartJourney()
	f.tickUntil(core.PhaseDeviationPause, 200)
	pausedStep := f.j.State().Step

	// paused: ticks are dropped, state is frozen
	f.j.Tick(pausedStep + 1)
	if f.j.State().Step != pausedStep {
		t.Error("tick processed while paused")
	}
}

func TestDeviation_PausesAndRecords(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()

	step := f.tickUntil(core.PhaseDeviationPause, 200)
	st := f.j.State()
	if st.Phase != core.PhaseDeviationPause {
		t.Fatalf("deviation never fired; phase %s at step %d", st.Phase, step)
	}
	if !st.DeviationActive {
		t.Error("DeviationActive not set")
	}
	if st.PausedAtStep != step {
		t.Errorf("PausedAtStep: got %d, want %d", st.PausedAtStep, step)
	}
	if f.clock.pauses != 1 {
		t.Errorf("clock pauses: got %d", f.clock.pauses)
	}

	rec := f.j.Deviation()
	if rec == nil {
		t.Fatal("no deviation record")
	}
	if rec.DetectedAtStep != step {
		t.Errorf("record step: got %d, want %d", rec.DetectedAtStep, step)
	}
	if rec.Observed.Lat != rec.Expected.Lat+2.5 || rec.Observed.Lon != rec.Expected.Lon-1.8 {
		t.Errorf("offset not applied: %+v", rec)
	}

	// the record accessor returns a copy
	rec.Expected.Lat = 99
	if f.j.Deviation().Expected.Lat == 99 {
		t.Error("Deviation() exposes internal record")
	}

	// a deviation event was emitted
	var sawDeviation bool
	for _, e := range f.sink.Drain() {
		if e.Kind == core.EventDeviationDetected {
			sawDeviation = true
			if e.Step != step {
				t.Errorf("deviation event step: got %d", e.Step)
			}
		}
	}
	if !sawDeviation {
		t.Error("no deviation event emitted")
	}
}

func TestAnalysisFlow_SameRouteResume(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()
	pausedStep := f.tickUntil(core.PhaseDeviationPause, 200)
	f.sink.Drain()

	if err := f.j.Decide(core.DecisionAnalyze); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseAnalysisPending {
		t.Fatalf("phase: got %s", f.j.State().Phase)
	}

	// the analysis decision alone must not resume the clock
	if f.clock.resumes != 0 {
		t.Error("clock resumed before analysis completed")
	}

	if err := f.j.Signal(core.SignalAnalysisComplete); err != nil {
		t.Fatalf("signal failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseAnalysisComplete {
		t.Fatalf("phase: got %s", f.j.State().Phase)
	}

	if err := f.j.Decide(core.DecisionContinueSameRoute); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	st := f.j.State()
	if st.Phase != core.PhaseTransit {
		t.Fatalf("phase: got %s", st.Phase)
	}
	if st.DeviationActive {
		t.Error("deviation still active after resume")
	}
	if f.j.Deviation() != nil {
		t.Error("deviation record not cleared")
	}
	if f.clock.resumes != 1 {
		t.Errorf("clock resumes: got %d", f.clock.resumes)
	}

	// resume continues from the paused step; the next tick's position must
	// match an uninterrupted run at the same step
	f.j.Tick(pausedStep + 1)
	if f.j.State().Step != pausedStep+1 {
		t.Errorf("step after resume: got %d", f.j.State().Step)
	}

	phases := phasesOf(f.sink.Drain())
	want := []core.PhaseChange{
		{From: core.PhaseDeviationPause, To: core.PhaseAnalysisPending},
		{From: core.PhaseAnalysisPending, To: core.PhaseAnalysisComplete},
		{From: core.PhaseAnalysisComplete, To: core.PhaseTransit},
	}
	if len(phases) != len(want) {
		t.Fatalf("phase changes: got %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase change %d: got %+v, want %+v", i, phases[i], want[i])
		}
	}
}

func TestContinueMonitoring_SkipsAnalysis(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()
	f.tickUntil(core.PhaseDeviationPause, 200)

	if err := f.j.Decide(core.DecisionContinueMonitoring); err != nil {
		t.Fatalf("continue monitoring failed: %v", err)
	}
	st := f.j.State()
	if st.Phase != core.PhaseTransit {
		t.Errorf("phase: got %s", st.Phase)
	}
	if st.DeviationActive {
		t.Error("deviation still active")
	}
	if f.clock.resumes != 1 {
		t.Errorf("clock resumes: got %d", f.clock.resumes)
	}
}

func TestPortApproach_AndDocking(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()
	f.tickUntil(core.PhaseDeviationPause, 200)
	f.j.Decide(core.DecisionContinueMonitoring)

	step := f.tickUntil(core.PhasePortApproach, 200)
	st := f.j.State()
	if st.Phase != core.PhasePortApproach {
		t.Fatalf("approach never triggered; phase %s", st.Phase)
	}
	if st.ProgressPct < 95.0 {
		t.Errorf("approach below threshold: %v%%", st.ProgressPct)
	}
	if st.PausedAtStep != step {
		t.Errorf("PausedAtStep: got %d, want %d", st.PausedAtStep, step)
	}

	if err := f.j.Signal(core.SignalAssessmentComplete); err != nil {
		t.Fatalf("assessment signal failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseDockingPending {
		t.Fatalf("phase: got %s", f.j.State().Phase)
	}

	// delaying holds position and counts
	if err := f.j.Decide(core.DecisionDelayDocking); err != nil {
		t.Fatalf("delay failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseDockingPending {
		t.Errorf("phase after delay: got %s", f.j.State().Phase)
	}
	if f.j.State().DockingDelays != 1 {
		t.Errorf("docking delays: got %d", f.j.State().DockingDelays)
	}

	if err := f.j.Decide(core.DecisionAcceptDocking); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	st = f.j.State()
	if st.Phase != core.PhaseDocked {
		t.Fatalf("phase: got %s", st.Phase)
	}
	if st.ProgressPct != 100 {
		t.Errorf("final progress: got %v", st.ProgressPct)
	}
	if f.clock.stops != 1 {
		t.Errorf("clock stops: got %d", f.clock.stops)
	}
}

func TestApproach_OneShotAfterResume(t *testing.T) {
	// after assessment the voyage resumes ticking to totalSteps; crossing
	// the threshold again must not re-trigger the approach pause
	f := newFixture(t, 200)
	f.j.StartJourney()
	f.tickUntil(core.PhaseDeviationPause, 200)
	f.j.Decide(core.DecisionContinueMonitoring)
	f.tickUntil(core.PhasePortApproach, 200)
	f.j.Signal(core.SignalAssessmentComplete)

	// delay, then accept later; meanwhile ticks outside Transit are ignored
	f.j.Decide(core.DecisionDelayDocking)
	f.j.Decide(core.DecisionAcceptDocking)
	if f.j.State().Phase != core.PhaseDocked {
		t.Fatalf("phase: got %s", f.j.State().Phase)
	}
}

func TestCompletion_AtTotalSteps(t *testing.T) {
	// no deviation detector hit (threshold cleared via monitoring), approach
	// acknowledged, then the final step docks the vessel
	f := newFixture(t, 100)
	f.j.StartJourney()
	f.tickUntil(core.PhaseDeviationPause, 100)
	f.j.Decide(core.DecisionContinueMonitoring)
	f.tickUntil(core.PhasePortApproach, 100)

	// resume transit by signalling and accepting isn't possible before
	// docking; the docking decision completes the voyage instead of the
	// final tick in this scripted flow
	f.j.Signal(core.SignalAssessmentComplete)
	f.j.Decide(core.DecisionAcceptDocking)

	st := f.j.State()
	if st.Phase != core.PhaseDocked || st.ProgressPct != 100 {
		t.Errorf("final state: %+v", st)
	}
}

func TestFinalStep_ApproachBeforeCompletion(t *testing.T) {
	// with the threshold at 100% the final tick crosses the approach
	// threshold and reaches totalSteps at the same time; the approach pause
	// wins and the vessel must not dock unassessed
	clk := &fakeClock{}
	events := sink.New()
	j, err := New(Config{
		Route:       atlanticRoute(t),
		TotalSteps:  50,
		Detector:    deviation.NewDetector(2, deviation.Offset{}), // fraction never reaches 2
		Clock:       clk,
		Sink:        events,
		ApproachPct: 100,
	})
	if err != nil {
		t.Fatalf("failed to build journey: %v", err)
	}
	j.StartJourney()
	for s := uint64(1); s <= 50; s++ {
		j.Tick(s)
	}

	st := j.State()
	if st.Phase != core.PhasePortApproach {
		t.Fatalf("phase at final step: got %s, want %s", st.Phase, core.PhasePortApproach)
	}
	if st.ProgressPct != 100 {
		t.Errorf("progress at final step: got %v", st.ProgressPct)
	}
	if clk.pauses != 1 || clk.stops != 0 {
		t.Errorf("clock calls: pauses %d, stops %d", clk.pauses, clk.stops)
	}

	// docking still requires the assessment and the handoff decision
	j.Signal(core.SignalAssessmentComplete)
	if err := j.Decide(core.DecisionAcceptDocking); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if j.State().Phase != core.PhaseDocked {
		t.Errorf("phase after accept: got %s", j.State().Phase)
	}
}

// failingClock rejects pause and resume requests.
type failingClock struct {
	fakeClock
	err error
}

func (c *failingClock) Pause() error  { c.pauses++; return c.err }
func (c *failingClock) Resume() error { c.resumes++; return c.err }

func TestClockFailures_AreLogged(t *testing.T) {
	clk := &failingClock{err: errors.New("scheduler gone")}
	events := sink.New()
	j, err := New(Config{
		Route:      atlanticRoute(t),
		TotalSteps: 200,
		Detector:   deviation.NewDetector(0.3, deviation.Offset{Lat: 2.5, Lon: -1.8}),
		Clock:      clk,
		Sink:       events,
	})
	if err != nil {
		t.Fatalf("failed to build journey: %v", err)
	}
	j.StartJourney()
	for s := uint64(1); s <= 200 && j.State().Phase == core.PhaseTransit; s++ {
		j.Tick(s)
	}
	if j.State().Phase != core.PhaseDeviationPause {
		t.Fatalf("deviation never fired; phase %s", j.State().Phase)
	}
	if err := j.Decide(core.DecisionContinueMonitoring); err != nil {
		t.Fatalf("continue monitoring failed: %v", err)
	}

	var pauseLogged, resumeLogged bool
	for _, e := range events.Drain() {
		if e.Kind != core.EventLogLine {
			continue
		}
		if strings.Contains(e.Log.Text, "clock pause failed") {
			pauseLogged = true
		}
		if strings.Contains(e.Log.Text, "clock resume failed") {
			resumeLogged = true
		}
	}
	if !pauseLogged {
		t.Error("pause failure not logged")
	}
	if !resumeLogged {
		t.Error("resume failure not logged")
	}
}

func TestInvalidTransitions_NoMutation(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()

	cases := []struct {
		name string
		do   func() error
	}{
		{"analyze in transit", func() error { return f.j.Decide(core.DecisionAnalyze) }},
		{"accept docking in transit", func() error { return f.j.Decide(core.DecisionAcceptDocking) }},
		{"delay docking in transit", func() error { return f.j.Decide(core.DecisionDelayDocking) }},
		{"analysis signal in transit", func() error { return f.j.Signal(core.SignalAnalysisComplete) }},
		{"assessment signal in transit", func() error { return f.j.Signal(core.SignalAssessmentComplete) }},
	}
	for _, tc := range cases {
		before := f.j.State()
		err := tc.do()
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: got %v", tc.name, err)
		}
		if f.j.State() != before {
			t.Errorf("%s: state mutated on rejected transition", tc.name)
		}
	}
}

func TestAbort(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()
	f.j.Tick(1)

	if err := f.j.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if f.j.State().Phase != core.PhaseAborted {
		t.Errorf("phase: got %s", f.j.State().Phase)
	}
	if f.clock.stops != 1 {
		t.Errorf("clock stops: got %d", f.clock.stops)
	}

	// abort from a terminal phase is invalid
	if err := f.j.Abort(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double abort: got %v", err)
	}
}

func TestVoyageDay_Advances(t *testing.T) {
	f := newFixture(t, 200)
	f.j.StartJourney()

	f.j.Tick(1)
	if f.j.State().VoyageDay != 1 {
		t.Errorf("day at step 1: got %d", f.j.State().VoyageDay)
	}

	// with 24 steps per day the 24th step starts day 2
	f2 := newFixture(t, 2000)
	f2.j.StartJourney()
	for s := uint64(1); s <= 24; s++ {
		f2.j.Tick(s)
		if f2.j.State().Phase != core.PhaseTransit {
			f2.j.Decide(core.DecisionContinueMonitoring)
		}
	}
	if f2.j.State().VoyageDay != 2 {
		t.Errorf("day at step 24: got %d", f2.j.State().VoyageDay)
	}
}
