// Package gormstorage implements the storage.Backend interface on top of a
// GORM database. Records are staged in thread-safe queues and flushed to the
// database in batches by a background writer, so the hot recording path never
// blocks on the database.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meridianops/voyagesim/internal/geo"
	"github.com/meridianops/voyagesim/internal/model"
	"github.com/meridianops/voyagesim/internal/queue"
	"github.com/meridianops/voyagesim/pkg/core"
)

// DefaultFlushInterval is how often staged records are written out.
const DefaultFlushInterval = 1 * time.Second

// Dependencies holds everything the backend needs. A nil DB puts the backend
// in queue-only mode, useful for tests.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// recordQueues stages rows between the recording path and the writer.
type recordQueues struct {
	Positions  *queue.Queue[model.PositionState]
	Phases     *queue.Queue[model.PhaseEvent]
	Logs       *queue.Queue[model.VoyageLogEvent]
	Deviations *queue.Queue[model.DeviationEvent]
}

// Backend records voyage data into relational tables.
type Backend struct {
	db            *gorm.DB
	log           zerolog.Logger
	flushInterval time.Duration

	queues   *recordQueues
	stopChan chan struct{}
	writerWG sync.WaitGroup

	mu        sync.Mutex
	voyage    *model.Voyage
	lastPhase core.Phase
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	interval := deps.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Backend{
		db:            deps.DB,
		log:           deps.Logger,
		flushInterval: interval,
	}
}

// Init prepares the staging queues and starts the background writer.
func (b *Backend) Init() error {
	b.queues = &recordQueues{
		Positions:  queue.New[model.PositionState](),
		Phases:     queue.New[model.PhaseEvent](),
		Logs:       queue.New[model.VoyageLogEvent](),
		Deviations: queue.New[model.DeviationEvent](),
	}
	b.stopChan = make(chan struct{})

	if b.db != nil {
		b.writerWG.Add(1)
		go b.writeLoop()
	}
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.writerWG.Wait()
	return nil
}

// StartVoyage upserts the route and creates the voyage row.
func (b *Backend) StartVoyage(meta core.VoyageMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastPhase = core.PhaseIdle

	if b.db == nil {
		b.voyage = &model.Voyage{SessionID: meta.SessionID}
		return nil
	}

	waypoints, err := json.Marshal(meta.Waypoints)
	if err != nil {
		return fmt.Errorf("marshaling waypoints: %w", err)
	}

	route := &model.Route{
		RouteID:   meta.RouteID,
		Name:      meta.RouteName,
		RiskTier:  string(meta.RiskTier),
		Waypoints: datatypes.JSON(waypoints),
	}
	if _, err := route.GetOrInsert(b.db); err != nil {
		return fmt.Errorf("upserting route %s: %w", meta.RouteID, err)
	}

	voyage := &model.Voyage{
		SessionID:  meta.SessionID,
		RouteID:    route.ID,
		RouteName:  meta.RouteName,
		RiskTier:   string(meta.RiskTier),
		TotalSteps: meta.TotalSteps,
		StartTime:  meta.StartedAt,
	}
	if err := b.db.Create(voyage).Error; err != nil {
		return fmt.Errorf("creating voyage row: %w", err)
	}

	b.voyage = voyage
	b.log.Info().Str("session", meta.SessionID).Uint("voyageId", voyage.ID).Msg("Voyage recording started")
	return nil
}

// EndVoyage flushes remaining records and stamps the end time and final phase.
func (b *Backend) EndVoyage() error {
	if err := b.flush(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil || b.voyage == nil {
		return nil
	}

	err := b.db.Model(b.voyage).Updates(map[string]interface{}{
		"end_time":    time.Now(),
		"final_phase": string(b.lastPhase),
	}).Error
	if err != nil {
		return fmt.Errorf("finalizing voyage row: %w", err)
	}

	b.log.Info().Str("session", b.voyage.SessionID).Msg("Voyage recording ended")
	return nil
}

// RecordPosition stages a position sample.
func (b *Backend) RecordPosition(step uint64, p core.PositionUpdate) error {
	b.queues.Positions.Push(model.PositionState{
		Time:         time.Now(),
		VoyageID:     b.voyageID(),
		Step:         step,
		SegmentIndex: p.SegmentIndex,
		Fraction:     p.Fraction,
		ProgressPct:  p.ProgressPct,
		VoyageDay:    p.VoyageDay,
		Position:     geo.Coords3857From4326(p.Lon, p.Lat),
		Lat:          p.Lat,
		Lon:          p.Lon,
	})
	return nil
}

// RecordPhaseChange stages a phase transition.
func (b *Backend) RecordPhaseChange(step uint64, c core.PhaseChange) error {
	b.mu.Lock()
	b.lastPhase = c.To
	b.mu.Unlock()

	b.queues.Phases.Push(model.PhaseEvent{
		Time:      time.Now(),
		VoyageID:  b.voyageID(),
		Step:      step,
		FromPhase: string(c.From),
		ToPhase:   string(c.To),
	})
	return nil
}

// RecordLogLine stages a log line.
func (b *Backend) RecordLogLine(step uint64, l core.LogLine) error {
	b.queues.Logs.Push(model.VoyageLogEvent{
		Time:     l.Time,
		VoyageID: b.voyageID(),
		Step:     step,
		Text:     l.Text,
	})
	return nil
}

// RecordDeviation stages a deviation detection.
func (b *Backend) RecordDeviation(step uint64, d core.DeviationRecord) error {
	b.queues.Deviations.Push(model.DeviationEvent{
		Time:     time.Now(),
		VoyageID: b.voyageID(),
		Step:     step,
		Expected: geo.Coords3857From4326(d.Expected.Lon, d.Expected.Lat),
		Observed: geo.Coords3857From4326(d.Observed.Lon, d.Observed.Lat),
	})
	return nil
}

func (b *Backend) voyageID() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.voyage == nil {
		return 0
	}
	return b.voyage.ID
}

// writeLoop flushes the staging queues on an interval until Close, then once
// more to drain.
func (b *Backend) writeLoop() {
	defer b.writerWG.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.flush(); err != nil {
				b.log.Error().Err(err).Msg("Final flush failed")
			}
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.log.Error().Err(err).Msg("Flush failed")
			}
		}
	}
}

// flush writes all staged records in batches.
func (b *Backend) flush() error {
	if b.db == nil || b.queues == nil {
		return nil
	}

	if rows := b.queues.Positions.GetAndEmpty(); len(rows) > 0 {
		if err := b.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing %d position states: %w", len(rows), err)
		}
	}
	if rows := b.queues.Phases.GetAndEmpty(); len(rows) > 0 {
		if err := b.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing %d phase events: %w", len(rows), err)
		}
	}
	if rows := b.queues.Logs.GetAndEmpty(); len(rows) > 0 {
		if err := b.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing %d log events: %w", len(rows), err)
		}
	}
	if rows := b.queues.Deviations.GetAndEmpty(); len(rows) > 0 {
		if err := b.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing %d deviation events: %w", len(rows), err)
		}
	}
	return nil
}
