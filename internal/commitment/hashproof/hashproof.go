// Package hashproof implements the trivial transparency-only proof backend
// (C5 option a): the commitment itself is the proof. Verify only checks that
// the proof carries a non-zero commitment digest; it does not recompute it.
package hashproof

import (
	"encoding/hex"

	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Backend is the hash-only proof backend.
type Backend struct{}

// New returns a hashproof Backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Scheme() model.ProofScheme { return model.ProofSchemeHash }

// Prove packages the CommitInput as public inputs; the blob is empty since
// the commitment digest alone is the "proof".
func (b *Backend) Prove(in commitment.CommitInput, c model.Commitment) (model.Proof, error) {
	return model.Proof{
		Scheme:     model.ProofSchemeHash,
		Blob:       nil,
		Commitment: c,
		PublicInputs: map[string]interface{}{
			"artifact_digest": hex.EncodeToString(in.ArtifactDigest[:]),
			"score_fp6":       commitment.ScoreFixedPoint(in.Score),
			"timestamp_unix":  in.Timestamp.Unix(),
		},
	}, nil
}

// Verify recomputes nothing beyond checking the commitment carries a
// non-zero digest — a hash-only proof's soundness is that the commitment
// itself is content-addressed and was published alongside the verdict; the
// caller must independently recompute Commit(in) and compare if it wants to
// check a specific set of inputs against this proof.
func (b *Backend) Verify(p model.Proof) (bool, error) {
	return p.Commitment.Digest != [32]byte{}, nil
}
