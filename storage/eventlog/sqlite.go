// Package eventlog persists published events to SQLite so they survive
// restarts and can be paged through the RPC.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gigescrow/core/events"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Record is one persisted event.
type Record struct {
	ID         int64             `json:"id" yaml:"id"`
	Type       string            `json:"type" yaml:"type"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
	RecordedAt time.Time         `json:"recordedAt" yaml:"recordedAt"`
}

// Query filters List. Zero values select every type from the beginning.
type Query struct {
	Type    string
	AfterID int64
	Limit   int
}

// Store appends events to an events table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open creates or opens the SQLite database at path. Use ":memory:" for an
// ephemeral log.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("eventlog: path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL,
            attributes TEXT NOT NULL,
            recorded_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS events_type_idx ON events(type, id);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("eventlog: init schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append persists evt and returns its row id.
func (s *Store) Append(ctx context.Context, evt events.Event) (int64, error) {
	rendered := events.Render(evt)
	if rendered == nil {
		return 0, errors.New("eventlog: nil event")
	}
	attrs, err := json.Marshal(rendered.Attributes)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(type, attributes, recorded_at) VALUES(?, ?, ?)`,
		rendered.Type, string(attrs), s.now())
	if err != nil {
		return 0, fmt.Errorf("eventlog: insert: %w", err)
	}
	return res.LastInsertId()
}

// Emit implements events.Emitter. Write failures are logged and dropped so
// publication never blocks a committed call.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	if _, err := s.Append(context.Background(), evt); err != nil {
		s.logger.Error("persist event failed", "type", evt.EventType(), "error", err)
	}
}

// List returns events in ascending id order.
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := `SELECT id, type, attributes, recorded_at FROM events WHERE id > ?`
	args := []any{q.AfterID}
	if eventType := strings.TrimSpace(q.Type); eventType != "" {
		query += ` AND type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec   Record
			attrs string
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &attrs, &rec.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("eventlog: decode attributes: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
