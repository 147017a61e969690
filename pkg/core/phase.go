package core

// Phase is a named state of the voyage state machine.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseTransit          Phase = "transit"
	PhaseDeviationPause   Phase = "deviation_pause"
	PhaseAnalysisPending  Phase = "analysis_pending"
	PhaseAnalysisComplete Phase = "analysis_complete"
	PhasePortApproach     Phase = "port_approach_pause"
	PhaseDockingPending   Phase = "docking_pending"
	PhaseDocked           Phase = "docked"
	PhaseAborted          Phase = "aborted"
)

// Terminal reports whether no further ticks or decisions are processed in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDocked || p == PhaseAborted
}

// Paused reports whether logical progress is frozen in this phase.
// The clock keeps real time in paused phases but the step count does not advance.
func (p Phase) Paused() bool {
	switch p {
	case PhaseDeviationPause, PhaseAnalysisPending, PhaseAnalysisComplete,
		PhasePortApproach, PhaseDockingPending:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }
