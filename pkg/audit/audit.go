// Package audit persists terminal decisions to Postgres for offline
// review. Auditing is best-effort: a write failure is logged, never
// surfaced to the caller, and an unconfigured store is a no-op.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one persisted decision.
type Record struct {
	RequestID  string
	Role       string
	UserID     string
	SessionID  string
	Decision   string
	BlockedBy  string
	Reason     string
	Category   string
	Tier       string
	RiskScore  float64
	Confidence float64
	Overridden bool
	LatencyMs  float64
	CreatedAt  time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	request_id  TEXT PRIMARY KEY,
	role        TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	session_id  TEXT NOT NULL DEFAULT '',
	decision    TEXT NOT NULL,
	blocked_by  TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	tier        TEXT NOT NULL DEFAULT '',
	risk_score  DOUBLE PRECISION NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	overridden  BOOLEAN NOT NULL DEFAULT FALSE,
	latency_ms  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store writes decision rows. A nil Store (no DATABASE_URL) is valid and
// drops every record.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the decisions table exists.
// An empty DSN returns a nil store, which disables auditing.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Append writes one record. Never blocks the request path on failure.
func (s *Store) Append(ctx context.Context, rec Record) {
	if s == nil || s.pool == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decisions (
			request_id, role, user_id, session_id, decision, blocked_by,
			reason, category, tier, risk_score, confidence, overridden,
			latency_ms, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (request_id) DO NOTHING`,
		rec.RequestID, rec.Role, rec.UserID, rec.SessionID, rec.Decision,
		rec.BlockedBy, rec.Reason, rec.Category, rec.Tier, rec.RiskScore,
		rec.Confidence, rec.Overridden, rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		log.Printf("audit write failed for %s: %v", rec.RequestID, err)
	}
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
