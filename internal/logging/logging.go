// Package logging sets up slog fan-out to file, Graylog and OTel, plus the
// zerolog logger used by the database and influx managers.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, started time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, started.Format("20060102_150405")),
	)
}
