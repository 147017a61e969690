package core

// Decision is an externally supplied choice that gates a phase transition.
type Decision string

const (
	// DecisionAnalyze requests a deviation analysis from DeviationPause.
	DecisionAnalyze Decision = "analyze"
	// DecisionContinueMonitoring resumes transit from DeviationPause without analysis.
	DecisionContinueMonitoring Decision = "continue_monitoring"
	// DecisionContinueSameRoute resumes transit on the original route after analysis.
	DecisionContinueSameRoute Decision = "continue_same_route"
	// DecisionAcceptDocking accepts the docking recommendation and completes the voyage.
	DecisionAcceptDocking Decision = "accept_docking"
	// DecisionDelayDocking defers docking; the voyage stays in DockingPending.
	DecisionDelayDocking Decision = "delay_docking"
)

// Signal is an externally supplied completion notification, as opposed to a
// user decision. Analysis and port assessment run outside the engine; their
// results arrive as signals.
type Signal string

const (
	// SignalAnalysisComplete reports that the external deviation analysis finished.
	SignalAnalysisComplete Signal = "analysis_complete"
	// SignalAssessmentComplete reports that the external port assessment finished.
	SignalAssessmentComplete Signal = "assessment_complete"
)
