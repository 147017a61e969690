package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestSetupWritesToSessionFile(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)

	m.Logger().Info("voyage registered", "sessionId", "voyage_1", "routeId", "R_BOS_OPO")

	out := file.String()
	assert.Contains(t, out, "voyage registered")
	assert.Contains(t, out, "sessionId=voyage_1")
	assert.Contains(t, out, "routeId=R_BOS_OPO")
}

func TestSetupTimestampsAreRFC3339UTC(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)

	m.Logger().Info("tick")

	// time=2026-01-02T15:04:05Z — the trailing Z marks UTC
	line := file.String()
	start := strings.Index(line, "time=")
	require.GreaterOrEqual(t, start, 0, "no time attr in %q", line)
	stamp := line[start+len("time="):]
	stamp = stamp[:strings.IndexByte(stamp, ' ')]
	assert.True(t, strings.HasSuffix(stamp, "Z"), "timestamp %q not UTC", stamp)
}

func TestSetupLevelFiltersFile(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "warn", nil)

	m.Logger().Info("position update")
	m.Logger().Warn("deviation detected")

	out := file.String()
	assert.NotContains(t, out, "position update")
	assert.Contains(t, out, "deviation detected")
}

func TestSetupInjectsSessionContext(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("session", "20260829_120000")}
	})
	m.Setup(&file, "info", nil)

	m.Logger().Info("vessel docked")

	assert.Contains(t, file.String(), "session=20260829_120000")
}

func TestLoggerBeforeSetupFallsBack(t *testing.T) {
	m := NewSlogManager()
	assert.NotNil(t, m.Logger())
}

func TestFlush(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))

	var file bytes.Buffer
	provider := sdklog.NewLoggerProvider()
	m.Setup(&file, "info", provider)
	assert.NoError(t, m.Flush(context.Background()))
}

// recordingHandler captures records so fan-out behavior can be inspected.
type recordingHandler struct {
	level    slog.Level
	messages []string
	err      error
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.messages = append(h.messages, r.Message)
	return h.err
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandlerFanOut(t *testing.T) {
	console := &recordingHandler{level: slog.LevelInfo}
	file := &recordingHandler{level: slog.LevelDebug}
	logger := slog.New(NewMultiHandler(console, file))

	logger.Debug("tick 42")
	logger.Info("day 2 at sea")

	assert.Equal(t, []string{"day 2 at sea"}, console.messages)
	assert.Equal(t, []string{"tick 42", "day 2 at sea"}, file.messages)
}

func TestMultiHandlerSkipsNilHandlers(t *testing.T) {
	file := &recordingHandler{level: slog.LevelInfo}
	logger := slog.New(NewMultiHandler(nil, file, nil))

	logger.Info("voyage departed")

	assert.Equal(t, []string{"voyage departed"}, file.messages)
}

func TestMultiHandlerEnabled(t *testing.T) {
	m := NewMultiHandler(
		&recordingHandler{level: slog.LevelWarn},
		&recordingHandler{level: slog.LevelInfo},
	)
	ctx := context.Background()
	assert.True(t, m.Enabled(ctx, slog.LevelInfo))
	assert.False(t, m.Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandlerSurvivesFailingDestination(t *testing.T) {
	broken := &recordingHandler{level: slog.LevelInfo, err: errors.New("collector down")}
	file := &recordingHandler{level: slog.LevelInfo}
	logger := slog.New(NewMultiHandler(broken, file))

	logger.Info("course deviation detected")

	// the failing destination must not block the healthy one
	assert.Equal(t, []string{"course deviation detected"}, file.messages)
}

func TestMultiHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	h := NewMultiHandler(inner).WithAttrs([]slog.Attr{slog.String("vessel", "mv-aurora")})
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "underway", 0)))
	assert.Contains(t, buf.String(), "vessel=mv-aurora")

	grouped := NewMultiHandler(inner).WithGroup("voyage")
	assert.NotNil(t, grouped)

	// empty group name is a no-op per the handler contract
	m := NewMultiHandler(inner)
	assert.Equal(t, m, m.WithGroup(""))
}

func TestContextHandlerAddsDynamicAttrs(t *testing.T) {
	var buf bytes.Buffer
	day := 1
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.Int("voyageDay", day)}
	})
	logger := slog.New(h)

	logger.Info("position update")
	day = 2
	logger.Info("position update")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "voyageDay=1")
	assert.Contains(t, lines[1], "voyageDay=2")
}

func TestContextHandlerNilProvider(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), nil))

	logger.Info("no session context")

	assert.Contains(t, buf.String(), "no session context")
}
