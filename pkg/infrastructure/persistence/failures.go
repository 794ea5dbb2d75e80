// Package persistence stores command failures in SQLite so operators can see
// what users tripped over after the log has rotated.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_failures (
	id          TEXT PRIMARY KEY,
	event_id    TEXT NOT NULL,
	occurred_at TIMESTAMP NOT NULL,
	guild_id    TEXT NOT NULL DEFAULT '',
	channel_id  TEXT NOT NULL DEFAULT '',
	user_name   TEXT NOT NULL,
	command     TEXT NOT NULL DEFAULT '',
	identity    TEXT NOT NULL,
	category    TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	hints       TEXT NOT NULL DEFAULT '',
	responded   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_command_failures_occurred ON command_failures(occurred_at);
`

// FailureRecord is one row of the failure log.
type FailureRecord struct {
	ID         string
	EventID    string
	OccurredAt time.Time
	GuildID    string
	ChannelID  string
	UserName   string
	Command    string
	Identity   string
	Category   string
	Message    string
	Hints      []string
	Responded  bool
}

// FailureLog is a SQLite-backed append-only log of command failures.
type FailureLog struct {
	db *sql.DB
}

// OpenFailureLog opens (or creates) the database at path.
func OpenFailureLog(path string) (*FailureLog, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Handlers record concurrently; one writer connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &FailureLog{db: db}, nil
}

// Record appends rec. ID and OccurredAt are filled in when empty.
func (l *FailureLog) Record(ctx context.Context, rec FailureRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO command_failures
			(id, event_id, occurred_at, guild_id, channel_id, user_name, command, identity, category, message, hints, responded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.OccurredAt, rec.GuildID, rec.ChannelID, rec.UserName,
		rec.Command, rec.Identity, rec.Category, rec.Message, strings.Join(rec.Hints, "\n"), rec.Responded,
	)
	if err != nil {
		return fmt.Errorf("insert failure %s: %w", rec.EventID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (l *FailureLog) Recent(ctx context.Context, limit int) ([]FailureRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, event_id, occurred_at, guild_id, channel_id, user_name, command, identity, category, message, hints, responded
		FROM command_failures
		ORDER BY occurred_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var (
			rec   FailureRecord
			hints string
		)
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.OccurredAt, &rec.GuildID, &rec.ChannelID,
			&rec.UserName, &rec.Command, &rec.Identity, &rec.Category, &rec.Message, &hints, &rec.Responded); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if hints != "" {
			rec.Hints = strings.Split(hints, "\n")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByCategory returns how many failures were recorded per category.
func (l *FailureLog) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM command_failures GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (l *FailureLog) Close() error {
	return l.db.Close()
}
