// Package threshold implements t-of-n threshold signature schemes used to
// finalize cross-chain consensus results without any single validator
// holding the full signing key.
//
// Three schemes are registered behind a common Scheme interface:
//   - BLS, real Shamir secret sharing and Lagrange-interpolated signature
//     combination over gnark-crypto's bls12-381 group.
//   - Schnorr, real Ed25519 scalar/point arithmetic via filippo.io/edwards25519,
//     with one nonce per message derived from the group key and message and
//     shared by every signer (see schnorr_scheme.go).
//   - ECDSA, restricted to the degenerate t=n=1 case (see ecdsa_scheme.go) since
//     true t-of-n threshold ECDSA needs an interactive MPC protocol outside
//     this package's scope.
package threshold

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

var (
	ErrUnknownScheme      = errors.New("threshold: unknown signature scheme")
	ErrUnknownGroup       = errors.New("threshold: unknown signing group")
	ErrUnknownSigner      = errors.New("threshold: no key share for signer")
	ErrThresholdExceedsN  = errors.New("threshold: threshold cannot exceed total shares")
	ErrInsufficientShares = errors.New("threshold: insufficient partial signatures")
)

// scheme is the capability every threshold signature scheme must provide.
type scheme interface {
	generateShares(threshold, total int) ([]model.KeyShare, []byte, error)
	createPartial(message []byte, share model.KeyShare) (model.PartialSignature, error)
	combine(partials []model.PartialSignature, threshold int) (*model.ThresholdSignature, error)
	verify(sig model.ThresholdSignature, message []byte, groupPublicKey []byte) bool
}

var registry = map[model.SignatureScheme]scheme{
	model.SchemeBLS:     blsScheme{},
	model.SchemeSchnorr: schnorrScheme{},
	model.SchemeECDSA:   ecdsaScheme{},
}

// group tracks the state of one signing group: its key shares, the partial
// signatures collected per message, and any completed combinations.
type group struct {
	shares     []model.KeyShare
	groupPub   []byte
	schemeName model.SignatureScheme
	partials   map[[32]byte][]model.PartialSignature
	completed  map[[32]byte]model.ThresholdSignature
}

// Manager runs threshold signing operations across any number of signing
// groups, grounded on original_source's ThresholdSignatureManager.
type Manager struct {
	mu     sync.Mutex
	groups map[string]*group
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{groups: make(map[string]*group)}
}

// Setup generates threshold-of-total key shares for groupID under scheme,
// discarding any prior shares for that group.
func (m *Manager) Setup(groupID string, schemeName model.SignatureScheme, threshold, total int) ([]model.KeyShare, error) {
	s, ok := registry[schemeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, schemeName)
	}
	if threshold > total {
		return nil, ErrThresholdExceedsN
	}

	shares, groupPub, err := s.generateShares(threshold, total)
	if err != nil {
		return nil, fmt.Errorf("generate shares: %w", err)
	}
	for i := range shares {
		shares[i].Scheme = schemeName
		shares[i].GroupPublicKey = groupPub
	}

	m.mu.Lock()
	m.groups[groupID] = &group{
		shares:     shares,
		groupPub:   groupPub,
		schemeName: schemeName,
		partials:   make(map[[32]byte][]model.PartialSignature),
		completed:  make(map[[32]byte]model.ThresholdSignature),
	}
	m.mu.Unlock()

	return shares, nil
}

// CreatePartialSignature has signerID sign message with its share of
// groupID's key, recording the partial for later combination.
func (m *Manager) CreatePartialSignature(groupID string, message []byte, signerID int) (model.PartialSignature, error) {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	m.mu.Unlock()
	if !ok {
		return model.PartialSignature{}, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}

	var share *model.KeyShare
	for i := range g.shares {
		if g.shares[i].ShareID == signerID {
			share = &g.shares[i]
			break
		}
	}
	if share == nil {
		return model.PartialSignature{}, fmt.Errorf("%w: signer %d in group %s", ErrUnknownSigner, signerID, groupID)
	}

	s := registry[g.schemeName]
	partial, err := s.createPartial(message, *share)
	if err != nil {
		return model.PartialSignature{}, fmt.Errorf("create partial signature: %w", err)
	}

	m.mu.Lock()
	g.partials[partial.MessageHash] = append(g.partials[partial.MessageHash], partial)
	m.mu.Unlock()

	return partial, nil
}

// TryCombine attempts to combine the partial signatures collected so far for
// (groupID, messageHash) into a threshold signature. Returns nil, nil if not
// enough partials have arrived yet.
func (m *Manager) TryCombine(groupID string, messageHash [32]byte) (*model.ThresholdSignature, error) {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	partials := append([]model.PartialSignature(nil), g.partials[messageHash]...)
	threshold := 0
	if len(g.shares) > 0 {
		threshold = g.shares[0].Threshold
	}
	m.mu.Unlock()

	if len(partials) < threshold {
		return nil, nil
	}

	s := registry[g.schemeName]
	combined, err := s.combine(partials, threshold)
	if err != nil {
		return nil, fmt.Errorf("combine partial signatures: %w", err)
	}
	if combined == nil {
		return nil, nil
	}

	m.mu.Lock()
	g.completed[messageHash] = *combined
	m.mu.Unlock()

	return combined, nil
}

// Verify checks a completed threshold signature against a message using
// groupID's group public key.
func (m *Manager) Verify(groupID string, sig model.ThresholdSignature, message []byte) (bool, error) {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	s := registry[g.schemeName]
	return s.verify(sig, message, g.groupPub), nil
}

// Status reports how many partial signatures have arrived for
// (groupID, messageHash), the required threshold, and whether combination
// has completed.
type Status struct {
	PartialCount int
	Threshold    int
	Completed    bool
	Signature    *model.ThresholdSignature
}

// Status returns the current signing status for (groupID, messageHash).
func (m *Manager) Status(groupID string, messageHash [32]byte) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[groupID]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}

	st := Status{PartialCount: len(g.partials[messageHash])}
	if len(g.shares) > 0 {
		st.Threshold = g.shares[0].Threshold
	}
	if sig, done := g.completed[messageHash]; done {
		st.Completed = true
		st.Signature = &sig
	}
	return st, nil
}

// HashMessage computes the canonical message hash used to key partial
// signature collection, matching whatever a scheme's createPartial hashes
// internally.
func HashMessage(message []byte) [32]byte {
	return sha256.Sum256(message)
}
