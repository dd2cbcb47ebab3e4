package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	tool TEXT NOT NULL,
	correlation_id TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_correlation ON audit_events(correlation_id);
`

// SQLiteLogger persists audit events in a SQLite database and mirrors them
// to slog.
type SQLiteLogger struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates the audit database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteLogger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &SQLiteLogger{db: db, logger: logger}, nil
}

// Record stores event. Storage failures are logged, never returned.
func (l *SQLiteLogger) Record(ctx context.Context, event Event) {
	if l == nil || l.db == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, type, tool, correlation_id, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		event.Type,
		event.Tool,
		event.CorrelationID,
		event.Reason,
		event.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && l.logger != nil {
		l.logger.Warn("audit insert failed", "error", err, "type", event.Type, "tool", event.Tool)
	}
	if l.logger != nil {
		New(l.logger).Record(ctx, event)
	}
}

// Events returns the most recent events, newest first.
func (l *SQLiteLogger) Events(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT type, tool, correlation_id, reason, created_at FROM audit_events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			createdAt string
		)
		if err := rows.Scan(&event.Type, &event.Tool, &event.CorrelationID, &event.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Time, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close closes the database.
func (l *SQLiteLogger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
