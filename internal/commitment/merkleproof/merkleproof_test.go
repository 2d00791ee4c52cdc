package merkleproof

import (
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/commitment"
)

func TestMerkleproof_ProveVerify(t *testing.T) {
	b := New()
	for i := 0; i < 3; i++ {
		in := commitment.CommitInput{ArtifactDigest: [32]byte{byte(i)}, Score: 0.9, Timestamp: time.Now(), Nonce: [32]byte{byte(i + 1)}}
		c := commitment.Commit(in)
		p, err := b.Prove(in, c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ok, err := b.Verify(p)
		if err != nil || !ok {
			t.Fatalf("expected inclusion proof %d to verify, ok=%v err=%v", i, ok, err)
		}
	}
}

func TestTree_SingleLeaf(t *testing.T) {
	leaf := HashData([]byte("x"))
	tree, err := BuildTree([][32]byte{leaf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proof, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !VerifyProof(leaf, proof, tree.Root()) {
		t.Fatalf("expected single-leaf proof to verify")
	}
}

func TestTree_EmptyRejected(t *testing.T) {
	if _, err := BuildTree(nil); err != ErrEmptyTree {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}
