package persistence

import (
	"context"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbm.NewMemDB()
	s := NewStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := model.VerificationResult{
		RequestID:       "req-1",
		FinalVerdict:    model.VerdictPass,
		AggregatedScore: 0.92,
		ChainReceipts: []model.ChainVerificationResult{
			{ChainType: "solana-style", Status: model.ChainStatusVerified, Confidence: 0.9},
		},
	}

	if err := s.Put(ctx, result); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RequestID != result.RequestID || got.FinalVerdict != result.FinalVerdict {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, result)
	}
	if len(got.ChainReceipts) != 1 || got.ChainReceipts[0].ChainType != "solana-style" {
		t.Fatalf("unexpected chain receipts after round trip: %+v", got.ChainReceipts)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRejectsEmptyRequestID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(context.Background(), model.VerificationResult{}); err == nil {
		t.Fatal("expected an error for an empty request id")
	}
}

func TestListReturnsAllStoredIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"req-a", "req-b", "req-c"} {
		if err := s.Put(ctx, model.VerificationResult{RequestID: id, FinalVerdict: model.VerdictPass}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []string{"req-a", "req-b", "req-c"} {
		if !seen[want] {
			t.Errorf("missing id %q in list result %v", want, ids)
		}
	}
}

func TestPutOverwritesExistingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, model.VerificationResult{RequestID: "req-1", FinalVerdict: model.VerdictBorderline}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.Put(ctx, model.VerificationResult{RequestID: "req-1", FinalVerdict: model.VerdictPass}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FinalVerdict != model.VerdictPass {
		t.Fatalf("expected overwritten verdict %q, got %q", model.VerdictPass, got.FinalVerdict)
	}
}
