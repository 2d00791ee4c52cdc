package threshold

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrECDSAThresholdUnsupported is returned when generateShares is asked for
// anything other than the degenerate t=n=1 case. True t-of-n threshold ECDSA
// needs an interactive multi-party computation protocol (e.g. GG18/GG20)
// that does not fit a single-process signing scheme; this package wires
// ECDSA through go-ethereum's secp256k1 bindings only far enough to let a
// single-signer "group" participate in the same Scheme interface as BLS and
// Schnorr, so callers do not need a special case for t=n=1 policies.
var ErrECDSAThresholdUnsupported = errors.New("threshold: ecdsa scheme only supports t=n=1")

// ecdsaScheme implements the degenerate single-signer case of the Scheme
// interface over secp256k1, grounded on the chainops EthereumAdapter's use
// of github.com/ethereum/go-ethereum/crypto for key generation and signing.
type ecdsaScheme struct{}

func (ecdsaScheme) generateShares(threshold, total int) ([]model.KeyShare, []byte, error) {
	if threshold != 1 || total != 1 {
		return nil, nil, ErrECDSAThresholdUnsupported
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}

	pubBytes := crypto.FromECDSAPub(&key.PublicKey)

	shares := []model.KeyShare{{
		ShareID:          1,
		ShareValue:       crypto.FromECDSA(key),
		PublicCommitment: pubBytes,
		Threshold:        1,
		Total:            1,
	}}

	return shares, pubBytes, nil
}

func (ecdsaScheme) createPartial(message []byte, share model.KeyShare) (model.PartialSignature, error) {
	key, err := crypto.ToECDSA(share.ShareValue)
	if err != nil {
		return model.PartialSignature{}, fmt.Errorf("parse share value: %w", err)
	}

	digest := sha256.Sum256(message)
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return model.PartialSignature{}, fmt.Errorf("sign digest: %w", err)
	}

	return model.PartialSignature{
		SignerID:    share.ShareID,
		ShareValue:  sig,
		MessageHash: digest,
		Scheme:      model.SchemeECDSA,
	}, nil
}

// combine is the identity function for t=n=1: there is nothing to combine.
func (ecdsaScheme) combine(partials []model.PartialSignature, threshold int) (*model.ThresholdSignature, error) {
	if threshold != 1 {
		return nil, ErrECDSAThresholdUnsupported
	}
	if len(partials) < 1 {
		return nil, nil
	}
	p := partials[0]

	return &model.ThresholdSignature{
		Signature:   p.ShareValue,
		Signers:     []int{p.SignerID},
		Threshold:   1,
		MessageHash: p.MessageHash,
		Scheme:      model.SchemeECDSA,
	}, nil
}

func (ecdsaScheme) verify(sig model.ThresholdSignature, message []byte, groupPublicKey []byte) bool {
	digest := sha256.Sum256(message)
	recovered, err := crypto.SigToPub(digest[:], sig.Signature)
	if err != nil {
		return false
	}
	pub, err := crypto.UnmarshalPubkey(groupPublicKey)
	if err != nil {
		return false
	}
	return recoveredEqual(recovered, pub)
}

func recoveredEqual(a, b *ecdsa.PublicKey) bool {
	if a == nil || b == nil {
		return false
	}
	return a.X.Cmp(b.X) == 0 && a.Y.Cmp(b.Y) == 0
}
