package hashproof

import (
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func TestHashproof_ProveVerify(t *testing.T) {
	b := New()
	in := commitment.CommitInput{ArtifactDigest: [32]byte{1}, Score: 1.0, Timestamp: time.Now(), Nonce: [32]byte{2}}
	c := commitment.Commit(in)
	p, err := b.Prove(in, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Scheme != model.ProofSchemeHash {
		t.Fatalf("expected hash scheme, got %s", p.Scheme)
	}
	ok, err := b.Verify(p)
	if err != nil || !ok {
		t.Fatalf("expected verify to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestHashproof_VerifyRejectsZeroCommitment(t *testing.T) {
	b := New()
	ok, _ := b.Verify(model.Proof{Scheme: model.ProofSchemeHash})
	if ok {
		t.Fatalf("expected verify to fail for zero commitment")
	}
}
