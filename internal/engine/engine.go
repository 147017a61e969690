// Package engine exposes the voyage simulation to external collaborators:
// configure a voyage against a catalog route, start it, feed it decisions and
// signals, and subscribe to its event stream. The engine owns a session
// registry so several voyages can be configured side by side; each voyage
// serializes its ticks and decisions on one actor goroutine.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meridianops/voyagesim/internal/cache"
	"github.com/meridianops/voyagesim/internal/deviation"
	"github.com/meridianops/voyagesim/internal/geo"
	"github.com/meridianops/voyagesim/internal/routes"
	"github.com/meridianops/voyagesim/internal/storage"
	"github.com/meridianops/voyagesim/pkg/core"
)

// Errors returned by the session registry.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionActive   = errors.New("session is still active")
)

// DefaultPeriod is the tick period used when the config leaves it zero.
const DefaultPeriod = 250 * time.Millisecond

// VoyageConfig carries everything needed to configure one voyage.
type VoyageConfig struct {
	RouteID            string        // catalog route; ignored if Route is set
	Route              *core.Route   // explicit route, overrides RouteID
	TotalSteps         uint64
	Period             time.Duration
	DeviationThreshold float64
	DeviationOffset    deviation.Offset
	ApproachPct        float64
	StepsPerDay        uint64
}

// SessionInfo is a registry listing entry.
type SessionInfo struct {
	SessionID string     `json:"sessionId"`
	RouteID   string     `json:"routeId"`
	Phase     core.Phase `json:"phase"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Engine is the top-level facade.
type Engine struct {
	log       *slog.Logger
	catalog   *routes.Catalog
	backend   storage.Backend // optional voyage recorder
	distances *cache.DistanceCache

	mu       sync.RWMutex
	sessions map[string]*Voyage
	seq      uint64
}

// Option configures the engine.
type Option func(*Engine)

// WithBackend attaches a storage backend; every configured voyage is recorded
// through it.
func WithBackend(b storage.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// New creates an engine over the given route catalog.
func New(log *slog.Logger, catalog *routes.Catalog, opts ...Option) *Engine {
	e := &Engine{
		log:       log,
		catalog:   catalog,
		distances: cache.NewDistanceCache(),
		sessions:  make(map[string]*Voyage),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure validates the config, registers a new voyage session, and returns
// its handle. The voyage is idle until Start.
func (e *Engine) Configure(cfg VoyageConfig) (*Voyage, error) {
	route := cfg.Route
	if route == nil {
		if e.catalog == nil {
			return nil, routes.ErrRouteNotFound
		}
		var err error
		route, err = e.catalog.Get(cfg.RouteID)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}

	e.mu.Lock()
	e.seq++
	id := fmt.Sprintf("voyage_%d", e.seq)
	e.mu.Unlock()

	v, err := newVoyage(id, route, cfg, e.log, e.backend)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.sessions[id] = v
	e.mu.Unlock()

	distance := e.distances.GetOrCompute(route.ID(), func() float64 {
		return geo.RouteDistance(route)
	})

	e.log.Info("voyage configured",
		"session", id, "route", route.ID(), "distanceNM", distance,
		"totalSteps", cfg.TotalSteps, "period", cfg.Period)
	return v, nil
}

// Voyage returns the session with the given ID.
func (e *Engine) Voyage(id string) (*Voyage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return v, nil
}

// Start begins the voyage with the given session ID.
func (e *Engine) Start(id string) error {
	v, err := e.Voyage(id)
	if err != nil {
		return err
	}
	return v.Start()
}

// Decide routes an external decision to the session.
func (e *Engine) Decide(id string, d core.Decision) error {
	v, err := e.Voyage(id)
	if err != nil {
		return err
	}
	return v.Decide(d)
}

// Signal routes an external completion signal to the session.
func (e *Engine) Signal(id string, s core.Signal) error {
	v, err := e.Voyage(id)
	if err != nil {
		return err
	}
	return v.Signal(s)
}

// Abort aborts the session's voyage.
func (e *Engine) Abort(id string) error {
	v, err := e.Voyage(id)
	if err != nil {
		return err
	}
	return v.Abort()
}

// Sessions lists all registered sessions ordered by ID.
func (e *Engine) Sessions() []SessionInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]SessionInfo, 0, len(e.sessions))
	for _, v := range e.sessions {
		out = append(out, SessionInfo{
			SessionID: v.ID(),
			RouteID:   v.RouteID(),
			Phase:     v.State().Phase,
			CreatedAt: v.CreatedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Remove deletes a session. Only terminal (docked or aborted) or never-started
// voyages can be removed; active ones must be aborted first.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	st := v.State()
	if st.Phase != core.PhaseIdle && !st.Phase.Terminal() {
		return fmt.Errorf("%w: %s in phase %s", ErrSessionActive, id, st.Phase)
	}
	v.close()
	delete(e.sessions, id)
	return nil
}

// Close aborts all non-terminal voyages and shuts their actors down.
func (e *Engine) Close() {
	e.mu.Lock()
	sessions := make([]*Voyage, 0, len(e.sessions))
	for _, v := range e.sessions {
		sessions = append(sessions, v)
	}
	e.sessions = make(map[string]*Voyage)
	e.mu.Unlock()

	for _, v := range sessions {
		st := v.State()
		if st.Phase != core.PhaseIdle && !st.Phase.Terminal() {
			_ = v.Abort()
		}
		v.close()
	}
}
