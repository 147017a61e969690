package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meridianops/voyagesim/pkg/core"
)

// exportDocument is the JSON shape written on EndVoyage.
type exportDocument struct {
	Meta       core.VoyageMeta        `json:"meta"`
	EndedAt    time.Time              `json:"endedAt"`
	Positions  []PositionRecord       `json:"positions"`
	Phases     []PhaseRecord          `json:"phases"`
	Logs       []LogRecord            `json:"logs"`
	Deviations []DeviationRecordEntry `json:"deviations"`
}

// exportJSON writes the voyage data to a JSON file, gzipped when configured.
// Caller holds b.mu.
func (b *Backend) exportJSON() error {
	if b.meta == nil {
		return nil
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	doc := exportDocument{
		Meta:       *b.meta,
		EndedAt:    b.endedAt,
		Positions:  b.positions,
		Phases:     b.phases,
		Logs:       b.logs,
		Deviations: b.deviations,
	}

	name := fmt.Sprintf("%s.%s.json", b.meta.SessionID, b.endedAt.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(file)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(doc); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	} else {
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}
