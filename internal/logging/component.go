package logging

import "log/slog"

// ComponentLogger adapts *slog.Logger to the key-value Logger interfaces of
// the dispatcher and worker packages, tagging each record with a component.
type ComponentLogger struct {
	logger *slog.Logger
}

// NewComponentLogger wraps logger, or slog.Default when nil.
func NewComponentLogger(logger *slog.Logger, component string) *ComponentLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComponentLogger{logger: logger.With("component", component)}
}

// NewDispatcherLogger is NewComponentLogger for the command dispatcher.
func NewDispatcherLogger(logger *slog.Logger) *ComponentLogger {
	return NewComponentLogger(logger, "dispatcher")
}

func (l *ComponentLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *ComponentLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *ComponentLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}
