package commitment

import (
	"testing"
	"time"
)

func sampleInput() CommitInput {
	return CommitInput{
		ArtifactDigest: [32]byte{1, 2, 3},
		Score:          0.745,
		IssueDigests:   [][32]byte{{9}, {1}},
		EvidenceRefs:   []string{"ref-b", "ref-a"},
		Timestamp:      time.Unix(1700000000, 0),
		Nonce:          [32]byte{7},
	}
}

func TestCommit_Idempotent(t *testing.T) {
	in := sampleInput()
	c1 := Commit(in)
	c2 := Commit(in)
	if c1.Digest != c2.Digest {
		t.Fatalf("commit is not idempotent: %x vs %x", c1.Digest, c2.Digest)
	}
}

func TestCommit_DiffersOnDifferentInput(t *testing.T) {
	in1 := sampleInput()
	in2 := sampleInput()
	in2.Score = 0.1
	c1 := Commit(in1)
	c2 := Commit(in2)
	if c1.Digest == c2.Digest {
		t.Fatalf("expected different commitments for different scores")
	}
}

func TestCommit_OrderIndependentOfInputOrdering(t *testing.T) {
	in1 := sampleInput()
	in2 := sampleInput()
	in2.IssueDigests = [][32]byte{{1}, {9}} // reversed order
	in2.EvidenceRefs = []string{"ref-a", "ref-b"}
	c1 := Commit(in1)
	c2 := Commit(in2)
	if c1.Digest != c2.Digest {
		t.Fatalf("commitment should be independent of issue/evidence ordering")
	}
}

func TestCanonicalizeJSON_SortsKeys(t *testing.T) {
	out, err := CanonicalizeJSON([]byte(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":2,"b":1}` {
		t.Fatalf("expected sorted keys, got %s", out)
	}
}
