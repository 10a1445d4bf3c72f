package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Journal is a SQLite-backed sink that can be queried back.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenJournal opens (or creates) the journal database at path.
// Use ":memory:" for an in-process journal.
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		section TEXT,
		entity_id TEXT,
		request_id TEXT,
		actor TEXT,
		message TEXT NOT NULL,
		error TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(type);
	CREATE INDEX IF NOT EXISTS idx_audit_events_section ON audit_events(section);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Write implements Sink.
func (j *Journal) Write(ctx context.Context, events []Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO audit_events (
			id, timestamp, type, severity, section, entity_id,
			request_id, actor, message, error, details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		var details []byte
		if len(e.Details) > 0 {
			details, err = json.Marshal(e.Details)
			if err != nil {
				details = []byte("{}")
			}
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Timestamp.UTC(), string(e.Type), string(e.Severity), e.Section, e.EntityID,
			e.RequestID, e.Actor, e.Message, e.Error, string(details),
		); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}

	return tx.Commit()
}

// Query filters the journal.
type Query struct {
	Section string
	Type    EventType
	Since   time.Time
	Limit   int
}

// List returns matching events, newest first.
func (j *Journal) List(ctx context.Context, q Query) ([]Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Section != "" {
		where = append(where, "section = ?")
		args = append(args, q.Section)
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since.UTC())
	}

	query := `SELECT id, timestamp, type, severity, section, entity_id, request_id, actor, message, error, details FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e                                                 Event
			typ, severity                                     string
			section, entityID, requestID, actor, errMsg, data sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &typ, &severity, &section, &entityID, &requestID, &actor, &e.Message, &errMsg, &data); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = EventType(typ)
		e.Severity = Severity(severity)
		e.Section = section.String
		e.EntityID = entityID.String
		e.RequestID = requestID.String
		e.Actor = actor.String
		e.Error = errMsg.String
		if data.String != "" {
			_ = json.Unmarshal([]byte(data.String), &e.Details)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of journaled events.
func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n)
	return n, err
}

// Ping verifies the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close implements Sink.
func (j *Journal) Close() error {
	return j.db.Close()
}
