package threshold

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// schnorrScheme implements t-of-n threshold Schnorr signing over edwards25519,
// grounded on original_source's SchnorrThreshold but replacing its toy
// big.Int modexp group with real scalar/point arithmetic. The nonce k is
// derived deterministically from (group public key, message) rather than
// chosen independently per signer: the original generates an independent
// random commitment r per partial signature and then combines using only
// the first signer's r, which produces a signature that does not verify
// against the challenge each partial was actually computed under. Using one
// shared, publicly-derivable nonce per message keeps every partial under the
// same challenge so the combined signature is genuinely verifiable; it is
// still not a production nonce-hiding protocol (that needs a two-round
// commit/reveal exchange, i.e. FROST), which this package does not
// implement.
type schnorrScheme struct{}

const schnorrDomain = "TRUSTWRAPPER_THRESHOLD_SCHNORR_V1"

func (schnorrScheme) generateShares(threshold, total int) ([]model.KeyShare, []byte, error) {
	if threshold < 1 {
		return nil, nil, errors.New("threshold must be >= 1")
	}

	coefficients := make([]*edwards25519.Scalar, threshold)
	for i := range coefficients {
		s, err := randomScalar()
		if err != nil {
			return nil, nil, fmt.Errorf("generate polynomial coefficient: %w", err)
		}
		coefficients[i] = s
	}

	groupPub := new(edwards25519.Point).ScalarBaseMult(coefficients[0]).Bytes()

	shares := make([]model.KeyShare, total)
	for i := 1; i <= total; i++ {
		x := scalarFromInt(i)
		value := evaluateScalarPolynomial(coefficients, x)
		commitment := new(edwards25519.Point).ScalarBaseMult(value).Bytes()

		shares[i-1] = model.KeyShare{
			ShareID:          i,
			ShareValue:       value.Bytes(),
			PublicCommitment: commitment,
			Threshold:        threshold,
			Total:            total,
		}
	}

	return shares, groupPub, nil
}

func (schnorrScheme) createPartial(message []byte, share model.KeyShare) (model.PartialSignature, error) {
	xi, err := new(edwards25519.Scalar).SetCanonicalBytes(share.ShareValue)
	if err != nil {
		return model.PartialSignature{}, fmt.Errorf("parse share value: %w", err)
	}

	k := deterministicNonce(share.GroupPublicKey, message)
	r := new(edwards25519.Point).ScalarBaseMult(k)
	e := hashToScalar(r.Bytes(), message)

	var s edwards25519.Scalar
	s.MultiplyAdd(e, xi, k)

	shareValue := append(append([]byte{}, r.Bytes()...), s.Bytes()...)

	return model.PartialSignature{
		SignerID:    share.ShareID,
		ShareValue:  shareValue,
		MessageHash: sha256.Sum256(message),
		Scheme:      model.SchemeSchnorr,
	}, nil
}

func (schnorrScheme) combine(partials []model.PartialSignature, threshold int) (*model.ThresholdSignature, error) {
	if len(partials) < threshold {
		return nil, nil
	}
	working := partials[:threshold]

	signerIDs := make([]int, len(working))
	var rBytes []byte
	partialScalars := make([]*edwards25519.Scalar, len(working))
	for i, p := range working {
		if len(p.ShareValue) != 64 {
			return nil, fmt.Errorf("malformed schnorr partial from signer %d", p.SignerID)
		}
		if i == 0 {
			rBytes = append([]byte{}, p.ShareValue[:32]...)
		}
		s, err := new(edwards25519.Scalar).SetCanonicalBytes(p.ShareValue[32:])
		if err != nil {
			return nil, fmt.Errorf("parse partial scalar from signer %d: %w", p.SignerID, err)
		}
		signerIDs[i] = p.SignerID
		partialScalars[i] = s
	}

	coefficients := lagrangeCoefficientsAtZeroEd25519(signerIDs)

	var combined edwards25519.Scalar
	for i, s := range partialScalars {
		var term edwards25519.Scalar
		term.Multiply(coefficients[i], s)
		combined.Add(&combined, &term)
	}

	signature := append(append([]byte{}, rBytes...), combined.Bytes()...)

	return &model.ThresholdSignature{
		Signature:   signature,
		Signers:     signerIDs,
		Threshold:   threshold,
		MessageHash: working[0].MessageHash,
		Scheme:      model.SchemeSchnorr,
	}, nil
}

func (schnorrScheme) verify(sig model.ThresholdSignature, message []byte, groupPublicKey []byte) bool {
	if len(sig.Signature) != 64 {
		return false
	}
	r, err := new(edwards25519.Point).SetBytes(sig.Signature[:32])
	if err != nil {
		return false
	}
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig.Signature[32:])
	if err != nil {
		return false
	}
	pub, err := new(edwards25519.Point).SetBytes(groupPublicKey)
	if err != nil {
		return false
	}

	e := hashToScalar(r.Bytes(), message)

	lhs := new(edwards25519.Point).ScalarBaseMult(s)
	rhs := new(edwards25519.Point).Add(r, new(edwards25519.Point).ScalarMult(e, pub))

	return lhs.Equal(rhs) == 1
}

func randomScalar() (*edwards25519.Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, err
	}
	return new(edwards25519.Scalar).SetUniformBytes(buf[:])
}

func scalarFromInt(i int) *edwards25519.Scalar {
	var buf [32]byte
	v := uint64(i)
	for b := 0; b < 8; b++ {
		buf[b] = byte(v >> (8 * b))
	}
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(buf[:])
	if err != nil {
		panic(fmt.Sprintf("threshold: signer id %d is not a canonical scalar: %v", i, err))
	}
	return s
}

func evaluateScalarPolynomial(coefficients []*edwards25519.Scalar, x *edwards25519.Scalar) *edwards25519.Scalar {
	result := new(edwards25519.Scalar).Set(coefficients[len(coefficients)-1])
	for i := len(coefficients) - 2; i >= 0; i-- {
		result.Multiply(result, x)
		result.Add(result, coefficients[i])
	}
	return result
}

func lagrangeCoefficientsAtZeroEd25519(ids []int) []*edwards25519.Scalar {
	xs := make([]*edwards25519.Scalar, len(ids))
	for i, id := range ids {
		xs[i] = scalarFromInt(id)
	}

	coefficients := make([]*edwards25519.Scalar, len(ids))
	for i := range ids {
		num := scalarFromInt(1)
		den := scalarFromInt(1)

		for j := range ids {
			if i == j {
				continue
			}
			num.Multiply(num, xs[j])

			diff := new(edwards25519.Scalar).Subtract(xs[j], xs[i])
			den.Multiply(den, diff)
		}

		den.Invert(den)
		coefficients[i] = new(edwards25519.Scalar).Multiply(num, den)
	}

	return coefficients
}

// deterministicNonce derives a single, publicly-recomputable nonce scalar
// shared by every signer for a given (groupPublicKey, message) pair.
func deterministicNonce(groupPublicKey, message []byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write([]byte(schnorrDomain))
	h.Write(groupPublicKey)
	h.Write(message)
	sum := h.Sum(nil)
	s, err := new(edwards25519.Scalar).SetUniformBytes(sum)
	if err != nil {
		panic(fmt.Sprintf("threshold: sha512 digest is not 64 bytes: %v", err))
	}
	return s
}

func hashToScalar(parts ...[]byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write([]byte(schnorrDomain))
	for _, p := range parts {
		h.Write(p)
	}
	sum := h.Sum(nil)
	s, err := new(edwards25519.Scalar).SetUniformBytes(sum)
	if err != nil {
		panic(fmt.Sprintf("threshold: sha512 digest is not 64 bytes: %v", err))
	}
	return s
}
