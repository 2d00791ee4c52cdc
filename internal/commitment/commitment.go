package commitment

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrVerifyFailed is returned by Verify when the proof does not match its
// public inputs.
var ErrVerifyFailed = errors.New("commitment: proof verification failed")

// CommitInput gathers everything the canonical encoding in §4.5 needs.
type CommitInput struct {
	ArtifactDigest [32]byte
	Score          float64
	IssueDigests   [][32]byte
	EvidenceRefs   []string
	Timestamp      time.Time
	Nonce          [32]byte
}

// ArtifactDigestOf hashes an artifact's bytes, used as the first field of
// the canonical commitment encoding.
func ArtifactDigestOf(a model.Artifact) [32]byte {
	return sha256.Sum256(a.Data)
}

// scoreFixedPoint encodes a [0,1] score as a big-endian u32 fixed-point with
// scale 1e6, matching §6's score_fp6 wire field.
func scoreFixedPoint(score float64) uint32 {
	return uint32(score*1_000_000 + 0.5)
}

// ScoreFixedPoint exports scoreFixedPoint for callers (C12's wire payload)
// that must reproduce the exact score_fp6 encoding used inside the
// commitment, rather than round-tripping through a Commit call.
func ScoreFixedPoint(score float64) uint32 {
	return scoreFixedPoint(score)
}

// IssueDigest content-addresses a single Issue (I1 — every Issue referenced
// by a TrustScore must itself be content-addressed).
func IssueDigest(issue model.Issue) [32]byte {
	var confBytes [8]byte
	binary.BigEndian.PutUint64(confBytes[:], math.Float64bits(issue.Confidence))
	return HashConcat([]byte(issue.Kind), confBytes[:], []byte(issue.Location), []byte(issue.Evidence))
}

// canonicalBytes produces the length-prefixed concatenation specified in
// §4.5: artifact_digest, score_fp6, sorted issue digests, sorted evidence
// refs, nonce, timestamp floored to the second.
func canonicalBytes(in CommitInput) []byte {
	var buf []byte
	buf = appendLP(buf, in.ArtifactDigest[:])

	var scoreBytes [4]byte
	binary.BigEndian.PutUint32(scoreBytes[:], scoreFixedPoint(in.Score))
	buf = appendLP(buf, scoreBytes[:])

	for _, digestHex := range SortedDigests(in.IssueDigests) {
		buf = appendLP(buf, []byte(digestHex))
	}

	sortedRefs := make([]string, len(in.EvidenceRefs))
	copy(sortedRefs, in.EvidenceRefs)
	sortStrings(sortedRefs)
	for _, ref := range sortedRefs {
		buf = appendLP(buf, []byte(ref))
	}

	buf = appendLP(buf, in.Nonce[:])

	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], uint64(in.Timestamp.Unix()))
	buf = appendLP(buf, tsBytes[:])

	return buf
}

func appendLP(buf []byte, part []byte) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(part)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, part...)
	return buf
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// NewNonce returns a fresh random 32-byte nonce.
func NewNonce() ([32]byte, error) {
	var n [32]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, err
	}
	return n, nil
}

// Commit computes the Commitment: a pure function of its canonical inputs
// (I2 — identical inputs yield identical commitments).
func Commit(in CommitInput) model.Commitment {
	in.Timestamp = in.Timestamp.Truncate(time.Second)
	digest := sha256.Sum256(canonicalBytes(in))
	return model.Commitment{Digest: digest, Nonce: in.Nonce}
}

// Backend is the pluggable proof backend contract from §4.5: three
// implementations envisaged (hash, merkle, snark), treated uniformly by the
// rest of the core — only Verify is required to succeed for a valid proof.
type Backend interface {
	Scheme() model.ProofScheme
	Prove(in CommitInput, c model.Commitment) (model.Proof, error)
	Verify(p model.Proof) (bool, error)
}

// Generator wires a commitment computation to a selected proof Backend.
type Generator struct {
	backend Backend
}

// NewGenerator builds a Generator using the given backend.
func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend}
}

// Commit produces the Commitment for a request's inputs.
func (g *Generator) Commit(in CommitInput) model.Commitment {
	return Commit(in)
}

// Prove produces a Proof for a previously-computed commitment.
func (g *Generator) Prove(in CommitInput, c model.Commitment) (model.Proof, error) {
	return g.backend.Prove(in, c)
}

// Verify checks a Proof against its own embedded public inputs.
func (g *Generator) Verify(p model.Proof) (bool, error) {
	return g.backend.Verify(p)
}
