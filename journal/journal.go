// Package journal provides a SQLite-backed diagnostic event journal. It
// records accepted intents and their outcomes; the transcript itself is
// never persisted or rebuilt from it.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/byn52602/ask-my-github/domain"
)

// Journal stores diagnostic events in SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens (and migrates) a journal at the given DSN.
func Open(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *Journal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			repo_url TEXT,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts)`,
	}

	for _, m := range migrations {
		if _, err := j.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one event. payload may be nil.
func (j *Journal) Record(ctx context.Context, eventType domain.EventType, repoURL string, payload interface{}) error {
	var payloadStr sql.NullString
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadStr = sql.NullString{String: string(data), Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (event_id, ts, type, repo_url, payload) VALUES (?, ?, ?, ?, ?)`,
		"evt_"+uuid.New().String()[:8], time.Now().UnixMilli(), eventType, repoURL, payloadStr)
	return err
}

// Events retrieves events ordered by timestamp, optionally after a given
// Unix-millisecond timestamp.
func (j *Journal) Events(ctx context.Context, afterTs int64, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, ts, type, repo_url, payload FROM events`
	args := []interface{}{}

	if afterTs > 0 {
		query += ` WHERE ts > ?`
		args = append(args, afterTs)
	}

	// rowid breaks ties between events in the same millisecond.
	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var repoURL, payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.Ts, &event.Type, &repoURL, &payload); err != nil {
			return nil, err
		}
		if repoURL.Valid {
			event.RepoURL = repoURL.String
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
