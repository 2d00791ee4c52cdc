package threshold

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/lamassu-labs/trustwrapper/internal/crypto/bls"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// blsScheme implements t-of-n threshold BLS signing via Shamir secret
// sharing of the BLS private key scalar, and Lagrange-weighted signature
// combination (Boldyreva threshold BLS): each signer's partial signature is
// an ordinary BLS signature under its share; combining sum(lambda_i * sig_i)
// yields the signature that would have been produced by the polynomial's
// constant term, without ever reconstructing it.
type blsScheme struct{}

// generateShares evaluates a random degree-(threshold-1) polynomial in Fr at
// points 1..total, grounded on the teacher's pkg/crypto/bls key generation
// (GenerateKeyPair's fr.Element scalar) plus Shamir's secret-sharing shape
// from original_source's SimplifiedBLSThreshold.generate_key_shares.
func (blsScheme) generateShares(threshold, total int) ([]model.KeyShare, []byte, error) {
	if err := bls.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize bls: %w", err)
	}
	if threshold < 1 {
		return nil, nil, errors.New("threshold must be >= 1")
	}

	coefficients := make([]fr.Element, threshold)
	for i := range coefficients {
		if _, err := coefficients[i].SetRandom(); err != nil {
			return nil, nil, fmt.Errorf("generate polynomial coefficient: %w", err)
		}
	}

	groupSecret := bls.PrivateKeyFromScalar(coefficients[0])
	groupPub := groupSecret.PublicKey().Bytes()

	shares := make([]model.KeyShare, total)
	for i := 1; i <= total; i++ {
		var x fr.Element
		x.SetUint64(uint64(i))

		value := evaluatePolynomial(coefficients, x)
		shareKey := bls.PrivateKeyFromScalar(value)

		shares[i-1] = model.KeyShare{
			ShareID:          i,
			ShareValue:       shareKey.Bytes(),
			PublicCommitment: shareKey.PublicKey().Bytes(),
			Threshold:        threshold,
			Total:            total,
		}
	}

	return shares, groupPub, nil
}

func (blsScheme) createPartial(message []byte, share model.KeyShare) (model.PartialSignature, error) {
	sk, err := bls.PrivateKeyFromBytes(share.ShareValue)
	if err != nil {
		return model.PartialSignature{}, fmt.Errorf("parse share value: %w", err)
	}

	sig := sk.SignWithDomain(message, bls.DomainThreshold)

	return model.PartialSignature{
		SignerID:    share.ShareID,
		ShareValue:  sig.Bytes(),
		MessageHash: sha256.Sum256(message),
		Scheme:      model.SchemeBLS,
	}, nil
}

func (blsScheme) combine(partials []model.PartialSignature, threshold int) (*model.ThresholdSignature, error) {
	if len(partials) < threshold {
		return nil, nil
	}
	working := partials[:threshold]

	signerIDs := make([]int, len(working))
	sigs := make([]*bls.Signature, len(working))
	for i, p := range working {
		sig, err := bls.SignatureFromBytes(p.ShareValue)
		if err != nil {
			return nil, fmt.Errorf("parse partial signature %d: %w", p.SignerID, err)
		}
		signerIDs[i] = p.SignerID
		sigs[i] = sig
	}

	coefficients := lagrangeCoefficientsAtZero(signerIDs)

	combined, err := bls.CombineWeighted(sigs, coefficients)
	if err != nil {
		return nil, fmt.Errorf("combine weighted signatures: %w", err)
	}

	return &model.ThresholdSignature{
		Signature:   combined.Bytes(),
		Signers:     signerIDs,
		Threshold:   threshold,
		MessageHash: working[0].MessageHash,
		Scheme:      model.SchemeBLS,
	}, nil
}

func (blsScheme) verify(sig model.ThresholdSignature, message []byte, groupPublicKey []byte) bool {
	combined, err := bls.SignatureFromBytes(sig.Signature)
	if err != nil {
		return false
	}
	pub, err := bls.PublicKeyFromBytes(groupPublicKey)
	if err != nil {
		return false
	}
	return pub.VerifyWithDomain(combined, message, bls.DomainThreshold)
}

// evaluatePolynomial computes sum(coefficients[i] * x^i) via Horner's method.
func evaluatePolynomial(coefficients []fr.Element, x fr.Element) fr.Element {
	var result fr.Element
	result.Set(&coefficients[len(coefficients)-1])
	for i := len(coefficients) - 2; i >= 0; i-- {
		result.Mul(&result, &x)
		result.Add(&result, &coefficients[i])
	}
	return result
}

// lagrangeCoefficientsAtZero computes, for each id in ids, the Lagrange
// basis coefficient lambda_i = prod_{j != i} x_j / (x_j - x_i), evaluated at
// x = 0, so that sum(lambda_i * f(x_i)) == f(0).
func lagrangeCoefficientsAtZero(ids []int) []fr.Element {
	xs := make([]fr.Element, len(ids))
	for i, id := range ids {
		xs[i].SetUint64(uint64(id))
	}

	coefficients := make([]fr.Element, len(ids))
	for i := range ids {
		var num, den fr.Element
		num.SetOne()
		den.SetOne()

		for j := range ids {
			if i == j {
				continue
			}
			num.Mul(&num, &xs[j])

			var diff fr.Element
			diff.Sub(&xs[j], &xs[i])
			den.Mul(&den, &diff)
		}

		den.Inverse(&den)
		coefficients[i].Mul(&num, &den)
	}

	return coefficients
}
