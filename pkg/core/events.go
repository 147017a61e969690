// pkg/core/events.go
package core

import "time"

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventPositionUpdate    EventKind = "position_update"
	EventPhaseChanged      EventKind = "phase_changed"
	EventLogLine           EventKind = "log_line"
	EventDeviationDetected EventKind = "deviation_detected"
)

// PositionUpdate carries an interpolated position sample for one tick.
type PositionUpdate struct {
	SegmentIndex int     `json:"segmentIndex"`
	Fraction     float64 `json:"fraction"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	ProgressPct  float64 `json:"progressPct"`
	VoyageDay    int     `json:"voyageDay"`
}

// PhaseChange records a state machine transition.
type PhaseChange struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// LogLine is an informational message tied to a logical step.
type LogLine struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Event is the tagged union emitted by the engine. Exactly one of Position,
// Phase, Log, or Deviation is set, matching Kind. Step is the logical
// timestamp (the step count at emission). Events are immutable once emitted
// and observed in emission order.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Step      uint64           `json:"step"`
	Position  *PositionUpdate  `json:"position,omitempty"`
	Phase     *PhaseChange     `json:"phase,omitempty"`
	Log       *LogLine         `json:"log,omitempty"`
	Deviation *DeviationRecord `json:"deviation,omitempty"`
}

// NewPositionEvent builds a position update event.
func NewPositionEvent(step uint64, p PositionUpdate) Event {
	return Event{Kind: EventPositionUpdate, Step: step, Position: &p}
}

// NewPhaseEvent builds a phase change event.
func NewPhaseEvent(step uint64, from, to Phase) Event {
	return Event{Kind: EventPhaseChanged, Step: step, Phase: &PhaseChange{From: from, To: to}}
}

// NewLogEvent builds a log line event stamped with wall time.
func NewLogEvent(step uint64, text string) Event {
	return Event{Kind: EventLogLine, Step: step, Log: &LogLine{Text: text, Time: time.Now()}}
}

// NewDeviationEvent builds a deviation detection event.
func NewDeviationEvent(step uint64, rec DeviationRecord) Event {
	return Event{Kind: EventDeviationDetected, Step: step, Deviation: &rec}
}

// DeviationRecord captures a detected divergence between the expected and the
// observed (offset-injected) position. At most one is active per voyage; it is
// cleared when the operator resumes on the same route.
type DeviationRecord struct {
	Expected       Waypoint `json:"expected"`
	Observed       Waypoint `json:"observed"`
	DetectedAtStep uint64   `json:"detectedAtStep"`
}
