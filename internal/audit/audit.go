package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types.
const (
	EventToolCall  = "tool_call"
	EventToolOK    = "tool_ok"
	EventToolError = "tool_error"
)

// Event represents an audit entry for a tool call.
type Event struct {
	// Type describes the event kind.
	Type string
	// Tool is the tool name.
	Tool string
	// CorrelationID links related events.
	CorrelationID string
	// Reason provides additional context, such as the failure message.
	Reason string
	// Time is when the event happened. Zero means now.
	Time time.Time
}

// Logger records audit events.
type Logger interface {
	// Record stores an audit event.
	Record(ctx context.Context, event Event)
}

// StdLogger writes audit events to slog.
type StdLogger struct {
	logger *slog.Logger
}

// New returns a StdLogger.
func New(logger *slog.Logger) *StdLogger {
	return &StdLogger{logger: logger}
}

// Record logs an audit event.
func (l *StdLogger) Record(ctx context.Context, event Event) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.InfoContext(ctx, "audit",
		"type", event.Type,
		"tool", event.Tool,
		"correlation_id", event.CorrelationID,
		"reason", event.Reason,
	)
}
