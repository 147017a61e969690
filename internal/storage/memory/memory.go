// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/meridianops/voyagesim/internal/config"
	"github.com/meridianops/voyagesim/pkg/core"
)

// PositionRecord is a recorded position sample.
type PositionRecord struct {
	Step     uint64              `json:"step"`
	Position core.PositionUpdate `json:"position"`
}

// PhaseRecord is a recorded phase transition.
type PhaseRecord struct {
	Step uint64     `json:"step"`
	From core.Phase `json:"from"`
	To   core.Phase `json:"to"`
}

// LogRecord is a recorded log line.
type LogRecord struct {
	Step uint64    `json:"step"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// DeviationRecordEntry is a recorded deviation detection.
type DeviationRecordEntry struct {
	Step      uint64               `json:"step"`
	Deviation core.DeviationRecord `json:"deviation"`
}

// Backend stores voyage data in memory and exports to JSON on EndVoyage.
type Backend struct {
	cfg  config.MemoryConfig
	meta *core.VoyageMeta

	positions  []PositionRecord
	phases     []PhaseRecord
	logs       []LogRecord
	deviations []DeviationRecordEntry

	endedAt      time.Time
	exportedPath string
	mu           sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartVoyage begins recording a new voyage, discarding any previous data.
func (b *Backend) StartVoyage(meta core.VoyageMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meta = &meta
	b.positions = nil
	b.phases = nil
	b.logs = nil
	b.deviations = nil
	b.endedAt = time.Time{}
	b.exportedPath = ""
	return nil
}

// EndVoyage finalizes and exports the voyage data.
func (b *Backend) EndVoyage() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.endedAt = time.Now()
	return b.exportJSON()
}

// RecordPosition records a position sample.
func (b *Backend) RecordPosition(step uint64, p core.PositionUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = append(b.positions, PositionRecord{Step: step, Position: p})
	return nil
}

// RecordPhaseChange records a phase transition.
func (b *Backend) RecordPhaseChange(step uint64, c core.PhaseChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.phases = append(b.phases, PhaseRecord{Step: step, From: c.From, To: c.To})
	return nil
}

// RecordLogLine records a log line.
func (b *Backend) RecordLogLine(step uint64, l core.LogLine) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, LogRecord{Step: step, Text: l.Text, Time: l.Time})
	return nil
}

// RecordDeviation records a deviation detection.
func (b *Backend) RecordDeviation(step uint64, d core.DeviationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deviations = append(b.deviations, DeviationRecordEntry{Step: step, Deviation: d})
	return nil
}

// Positions returns a copy of the recorded position samples.
func (b *Backend) Positions() []PositionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PositionRecord, len(b.positions))
	copy(out, b.positions)
	return out
}

// Phases returns a copy of the recorded phase transitions.
func (b *Backend) Phases() []PhaseRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PhaseRecord, len(b.phases))
	copy(out, b.phases)
	return out
}

// Logs returns a copy of the recorded log lines.
func (b *Backend) Logs() []LogRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]LogRecord, len(b.logs))
	copy(out, b.logs)
	return out
}

// Deviations returns a copy of the recorded deviation detections.
func (b *Backend) Deviations() []DeviationRecordEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]DeviationRecordEntry, len(b.deviations))
	copy(out, b.deviations)
	return out
}

// ExportedFilePath returns the path of the last exported file, if any.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}
