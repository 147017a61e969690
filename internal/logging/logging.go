// Package logging carries the simulator's slog setup: a fan-out over
// console, session log file, and the optional OTel bridge, plus the
// zerolog adapter the command dispatcher expects.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the session's log file under logsDir. The timestamp
// keys the file to the session so reruns never interleave.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
