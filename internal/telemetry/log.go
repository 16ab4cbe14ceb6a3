// Package telemetry carries the observability side of the tool
// surface: structured tool event logs with correlation ids, a recent
// operations buffer, and OTLP trace export.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NewCorrelationID returns a fresh id that ties a tool invocation's
// log lines, trace span and error payload together.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ToolLogger emits the tool lifecycle events.
type ToolLogger struct {
	log *slog.Logger
}

func NewToolLogger(log *slog.Logger) *ToolLogger {
	if log == nil {
		log = slog.Default()
	}
	return &ToolLogger{log: log}
}

func (l *ToolLogger) ToolStart(tool, correlationID, userID string) {
	l.log.Info("tool_start",
		"tool", tool,
		"correlation_id", correlationID,
		"user_id", userID,
	)
}

func (l *ToolLogger) ToolSuccess(tool, correlationID string, elapsed time.Duration) {
	l.log.Info("tool_success",
		"tool", tool,
		"correlation_id", correlationID,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (l *ToolLogger) ToolError(tool, correlationID string, elapsed time.Duration, err error) {
	l.log.Error("tool_error",
		"tool", tool,
		"correlation_id", correlationID,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)
}
