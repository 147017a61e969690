// internal/storage/storage.go
package storage

import "github.com/meridianops/voyagesim/pkg/core"

// Backend is the interface all voyage recording implementations must satisfy.
// A backend records one voyage at a time; StartVoyage resets it.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Voyage management
	StartVoyage(meta core.VoyageMeta) error
	EndVoyage() error

	// Event recording
	RecordPosition(step uint64, p core.PositionUpdate) error
	RecordPhaseChange(step uint64, c core.PhaseChange) error
	RecordLogLine(step uint64, l core.LogLine) error
	RecordDeviation(step uint64, d core.DeviationRecord) error
}

// Exportable is an optional interface for backends that produce a replay file
// suitable for handing to a map frontend.
type Exportable interface {
	ExportedFilePath() string
}
