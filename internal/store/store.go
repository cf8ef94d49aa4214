// Package store keeps local observations that outlive one client session:
// side memberships and generated summaries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

// Drivers accepted by Open.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Store wraps a database handle.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with driver and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "", SQLite:
		driver = SQLite
	case Postgres:
	default:
		return nil, fmt.Errorf("store: unknown driver %q (want sqlite or postgres)", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if driver == SQLite {
		// One writer; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := New(db, driver)
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateSchema creates all tables. Safe to call multiple times.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS membership (
    debate_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    side TEXT NOT NULL CHECK (side IN ('support', 'oppose')),
    joined_at BIGINT NOT NULL,
    PRIMARY KEY (debate_id, user_id)
);

CREATE TABLE IF NOT EXISTS summary (
    debate_id TEXT PRIMARY KEY,
    winner TEXT NOT NULL CHECK (winner IN ('support', 'oppose')),
    text TEXT NOT NULL,
    created_at BIGINT NOT NULL
);
`

// rebind turns ? placeholders into $N for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Membership returns the recorded side of userID in debateID.
func (s *Store) Membership(ctx context.Context, debateID, userID string) (debate.Side, bool, error) {
	var side string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT side FROM membership WHERE debate_id = ? AND user_id = ?
	`), debateID, userID).Scan(&side)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: membership: %w", err)
	}
	return debate.Side(side), true, nil
}

// SaveMembership records side unless a membership already exists, and
// returns the side that is on record afterwards.
func (s *Store) SaveMembership(ctx context.Context, debateID, userID string, side debate.Side, at time.Time) (debate.Side, error) {
	if !side.Valid() {
		return "", fmt.Errorf("store: invalid side %q", side)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO membership (debate_id, user_id, side, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (debate_id, user_id) DO NOTHING
	`), debateID, userID, string(side), at.Unix())
	if err != nil {
		return "", fmt.Errorf("store: save membership: %w", err)
	}
	held, _, err := s.Membership(ctx, debateID, userID)
	return held, err
}

// Summary is a generated closing summary.
type Summary struct {
	DebateID  string
	Winner    debate.Side
	Text      string
	CreatedAt time.Time
}

// Summary returns the recorded summary of debateID.
func (s *Store) Summary(ctx context.Context, debateID string) (Summary, bool, error) {
	var (
		sum     Summary
		winner  string
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT debate_id, winner, text, created_at FROM summary WHERE debate_id = ?
	`), debateID).Scan(&sum.DebateID, &winner, &sum.Text, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, fmt.Errorf("store: summary: %w", err)
	}
	sum.Winner = debate.Side(winner)
	sum.CreatedAt = time.Unix(created, 0).UTC()
	return sum, true, nil
}

// SaveSummary records sum unless one exists and returns the one on record.
func (s *Store) SaveSummary(ctx context.Context, sum Summary) (Summary, error) {
	if !sum.Winner.Valid() {
		return Summary{}, fmt.Errorf("store: invalid winner %q", sum.Winner)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO summary (debate_id, winner, text, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (debate_id) DO NOTHING
	`), sum.DebateID, string(sum.Winner), sum.Text, sum.CreatedAt.Unix())
	if err != nil {
		return Summary{}, fmt.Errorf("store: save summary: %w", err)
	}
	held, _, err := s.Summary(ctx, sum.DebateID)
	return held, err
}
