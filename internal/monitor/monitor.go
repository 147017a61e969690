// Package monitor periodically snapshots the session registry: a status file
// for operators, telemetry points for InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meridianops/voyagesim/internal/cache"
	"github.com/meridianops/voyagesim/internal/engine"
	"github.com/meridianops/voyagesim/internal/influx"
	"github.com/meridianops/voyagesim/pkg/core"
)

// DefaultInterval between status snapshots.
const DefaultInterval = 1 * time.Second

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Engine    *engine.Engine
	Influx    *influx.Manager // optional
	Logger    *slog.Logger
	StatusDir string
	Interval  time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps       Dependencies
	cycles     cache.SafeCounter
	lastPhases map[string]core.Phase
	isRunning  bool
	mu         sync.RWMutex
	stopChan   chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:       deps,
		lastPhases: make(map[string]core.Phase),
		stopChan:   make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Cycles returns how many snapshot cycles have completed.
func (s *Service) Cycles() int {
	return s.cycles.Value()
}

// StatusDocument is the JSON shape written to the status file and returned
// by Snapshot.
type StatusDocument struct {
	Time     time.Time            `json:"time"`
	Sessions []engine.SessionInfo `json:"sessions"`
	Active   int                  `json:"active"`
}

// Snapshot collects the current registry state.
func (s *Service) Snapshot() StatusDocument {
	sessions := s.deps.Engine.Sessions()
	active := 0
	for _, info := range sessions {
		if !info.Phase.Terminal() {
			active++
		}
	}
	return StatusDocument{Time: time.Now(), Sessions: sessions, Active: active}
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("starting status monitor goroutine")

		statusPath := filepath.Join(s.deps.StatusDir, "status.json")
		statusFile, err := os.Create(statusPath)
		if err != nil {
			logger.Error("error creating status file", "path", statusPath, "error", err)
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cycle(statusFile)
			}
		}
	}()

	return nil
}

// cycle runs one snapshot: status file rewrite plus telemetry writes.
func (s *Service) cycle(statusFile *os.File) {
	doc := s.Snapshot()

	if statusFile != nil {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			data = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		}
		statusFile.Truncate(0)
		statusFile.Seek(0, 0)
		statusFile.Write(data)
		statusFile.WriteString("\n")
	}

	if s.deps.Influx != nil {
		ctx := context.Background()
		if err := s.deps.Influx.WritePoint(ctx, influx.BucketEngine,
			influx.EnginePoint(len(doc.Sessions), doc.Active)); err != nil {
			s.deps.Logger.Error("error writing engine telemetry", "error", err)
		}

		for _, info := range doc.Sessions {
			last, seen := s.lastPhases[info.SessionID]
			if !seen || last != info.Phase {
				s.lastPhases[info.SessionID] = info.Phase
				if seen {
					v, err := s.deps.Engine.Voyage(info.SessionID)
					if err == nil {
						if err := s.deps.Influx.WritePoint(ctx, influx.BucketVoyageEvent,
							influx.PhasePoint(info.SessionID, info.RouteID,
								last.String(), info.Phase.String(), v.State().Step)); err != nil {
							s.deps.Logger.Error("error writing phase telemetry",
								"session", info.SessionID, "error", err)
						}
					}
				}
			}

			if info.Phase.Terminal() {
				continue
			}
			v, err := s.deps.Engine.Voyage(info.SessionID)
			if err != nil {
				continue
			}
			st := v.State()
			if err := s.deps.Influx.WritePoint(ctx, influx.BucketVoyageTrack,
				influx.TrackPoint(info.SessionID, info.RouteID, st)); err != nil {
				s.deps.Logger.Error("error writing track telemetry",
					"session", info.SessionID, "error", err)
			}
		}
	}

	s.cycles.Inc()
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
