package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/voyagesim/internal/engine"
	"github.com/meridianops/voyagesim/internal/routes"
	"github.com/meridianops/voyagesim/pkg/core"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	catalog, err := routes.NewCatalog()
	require.NoError(t, err)
	e := engine.New(slog.New(slog.NewTextHandler(io.Discard, nil)), catalog)
	t.Cleanup(e.Close)
	return e
}

func newTestService(t *testing.T, e *engine.Engine) *Service {
	t.Helper()
	s := NewService(Dependencies{
		Engine:    e,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StatusDir: t.TempDir(),
		Interval:  10 * time.Millisecond,
	})
	t.Cleanup(s.Stop)
	return s
}

func TestSnapshotCountsActiveSessions(t *testing.T) {
	e := testEngine(t)
	s := newTestService(t, e)

	doc := s.Snapshot()
	assert.Empty(t, doc.Sessions)
	assert.Zero(t, doc.Active)

	idle, err := e.Configure(engine.VoyageConfig{RouteID: "R_BOS_OPO", TotalSteps: 100})
	require.NoError(t, err)

	aborted, err := e.Configure(engine.VoyageConfig{
		RouteID:            "R_001",
		TotalSteps:         10_000,
		Period:             time.Millisecond,
		DeviationThreshold: 2,
	})
	require.NoError(t, err)
	require.NoError(t, aborted.Start())
	require.NoError(t, aborted.Abort())

	doc = s.Snapshot()
	require.Len(t, doc.Sessions, 2)
	assert.Equal(t, 1, doc.Active)

	byID := make(map[string]core.Phase, 2)
	for _, info := range doc.Sessions {
		byID[info.SessionID] = info.Phase
	}
	assert.Equal(t, core.PhaseIdle, byID[idle.ID()])
	assert.Equal(t, core.PhaseAborted, byID[aborted.ID()])
}

func TestStartWritesStatusFile(t *testing.T) {
	e := testEngine(t)
	dir := t.TempDir()
	s := NewService(Dependencies{
		Engine:    e,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StatusDir: dir,
		Interval:  10 * time.Millisecond,
	})
	defer s.Stop()

	_, err := e.Configure(engine.VoyageConfig{RouteID: "R_BOS_OPO", TotalSteps: 100})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Cycles() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Greater(t, s.Cycles(), 0, "no snapshot cycle completed")

	// Stop before reading so a concurrent rewrite cannot tear the file.
	s.Stop()
	for time.Now().Before(deadline) && s.IsRunning() {
		time.Sleep(5 * time.Millisecond)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "status.json"))
	require.NoError(t, err)

	var doc StatusDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Sessions, 1)
	assert.Equal(t, "R_BOS_OPO", doc.Sessions[0].RouteID)
	assert.Equal(t, 1, doc.Active)
}

func TestStartIsIdempotent(t *testing.T) {
	e := testEngine(t)
	s := newTestService(t, e)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Stop()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.IsRunning() {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, s.IsRunning())
}

func TestDefaultInterval(t *testing.T) {
	s := NewService(Dependencies{Engine: testEngine(t)})
	assert.Equal(t, DefaultInterval, s.deps.Interval)
}
