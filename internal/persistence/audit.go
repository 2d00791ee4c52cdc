package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// AuditLog appends a row per finalized verification to an external
// Postgres database, the same connection-pooled sql.DB-over-lib/pq shape
// as the teacher's database.Client, kept for an external reporting surface
// distinct from Store's own request-keyed lookups. Unlike Store, AuditLog
// has no Get and never deletes rows; Record upserts one row per request
// id. It exists for downstream SQL queries
// (dashboards, compliance export), not request lookup.
type AuditLog struct {
	db     *sql.DB
	logger *log.Logger
}

const createAuditTableSQL = `
CREATE TABLE IF NOT EXISTS verification_audit (
	request_id       TEXT PRIMARY KEY,
	final_verdict    TEXT NOT NULL,
	aggregated_score DOUBLE PRECISION NOT NULL,
	chain_count      INTEGER NOT NULL,
	timed_out        BOOLEAN NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewAuditLog opens a connection pool against dsn and ensures the audit
// table exists, mirroring the teacher's NewClient connect-then-ping-then-
// migrate sequence.
func NewAuditLog(dsn string, logger *log.Logger) (*AuditLog, error) {
	if dsn == "" {
		return nil, fmt.Errorf("persistence: audit log dsn cannot be empty")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[AuditLog] ", log.LstdFlags)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open audit database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ping audit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createAuditTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: migrate audit table: %w", err)
	}

	logger.Printf("connected to verification audit database")
	return &AuditLog{db: db, logger: logger}, nil
}

// Record inserts or updates the audit row for a finalized result.
func (a *AuditLog) Record(ctx context.Context, result model.VerificationResult) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO verification_audit (request_id, final_verdict, aggregated_score, chain_count, timed_out)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id) DO UPDATE SET
			final_verdict    = EXCLUDED.final_verdict,
			aggregated_score = EXCLUDED.aggregated_score,
			chain_count      = EXCLUDED.chain_count,
			timed_out        = EXCLUDED.timed_out`,
		result.RequestID, string(result.FinalVerdict), result.AggregatedScore,
		len(result.ChainReceipts), result.ConsensusStats.TimedOut,
	)
	if err != nil {
		return fmt.Errorf("persistence: record audit row: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (a *AuditLog) Close() error {
	return a.db.Close()
}
