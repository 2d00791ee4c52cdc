package persistence

import (
	"context"
	"os"
	"testing"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// These tests only run against a real Postgres instance, the same
// environment-gated integration style the teacher's database package uses
// (TestMain skips entirely when no test database is configured).
var testAuditDSN string

func TestMain(m *testing.M) {
	testAuditDSN = os.Getenv("TW_TEST_AUDIT_DB")
	os.Exit(m.Run())
}

func TestNewAuditLogRejectsEmptyDSN(t *testing.T) {
	if _, err := NewAuditLog("", nil); err == nil {
		t.Fatal("expected an error for an empty dsn")
	}
}

func TestAuditLogRecordAndUpsert(t *testing.T) {
	if testAuditDSN == "" {
		t.Skip("TW_TEST_AUDIT_DB not configured, skipping audit log integration test")
	}

	al, err := NewAuditLog(testAuditDSN, nil)
	if err != nil {
		t.Fatalf("new audit log: %v", err)
	}
	defer al.Close()

	ctx := context.Background()
	result := model.VerificationResult{
		RequestID:       "audit-test-1",
		FinalVerdict:    model.VerdictPass,
		AggregatedScore: 0.95,
		ChainReceipts: []model.ChainVerificationResult{
			{ChainType: "solana-style", Status: model.ChainStatusVerified},
		},
	}

	if err := al.Record(ctx, result); err != nil {
		t.Fatalf("record: %v", err)
	}

	result.FinalVerdict = model.VerdictBorderline
	if err := al.Record(ctx, result); err != nil {
		t.Fatalf("re-record (upsert): %v", err)
	}

	var verdict string
	if err := al.db.QueryRowContext(ctx,
		"SELECT final_verdict FROM verification_audit WHERE request_id = $1", result.RequestID,
	).Scan(&verdict); err != nil {
		t.Fatalf("query row: %v", err)
	}
	if verdict != string(model.VerdictBorderline) {
		t.Fatalf("expected upserted verdict %q, got %q", model.VerdictBorderline, verdict)
	}

	if _, err := al.db.ExecContext(ctx, "DELETE FROM verification_audit WHERE request_id = $1", result.RequestID); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
