package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// QueryLog is one served prompt, recorded for auditing.
//
// This is an append-only trail of requests and outcomes, not a data cache:
// resolved market data is never read back from it.
type QueryLog struct {
	RequestID string
	Prompt    string
	Status    string // "ok" or "error"
	LatencyMS int64
	CreatedAt time.Time
}

// QueryLogRepository defines the contract for persisting served prompts.
type QueryLogRepository interface {
	EnsureSchema() error
	InsertQueryLog(entry QueryLog) error
}

type queryLogRepository struct {
	db *sql.DB
}

// NewQueryLogRepository creates a repository over an open PostgreSQL handle.
func NewQueryLogRepository(db *sql.DB) QueryLogRepository {
	return &queryLogRepository{db: db}
}

// EnsureSchema creates the query_log table if it does not exist.
func (r *queryLogRepository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS query_log (
			id          BIGSERIAL PRIMARY KEY,
			request_id  TEXT NOT NULL,
			prompt      TEXT NOT NULL,
			status      TEXT NOT NULL,
			latency_ms  BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure query_log schema: %w", err)
	}
	return nil
}

// InsertQueryLog appends one entry to the audit trail.
func (r *queryLogRepository) InsertQueryLog(entry QueryLog) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO query_log (request_id, prompt, status, latency_ms, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.RequestID, entry.Prompt, entry.Status, entry.LatencyMS, created,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}
