// Package snarkproof implements the pluggable SNARK proof backend (C5
// option c): a thin Groth16 wrapper proving knowledge of a commitment's
// preimage components without revealing them. Grounded on the teacher's
// pkg/crypto/bls_zkp circuit/prover shape (gnark frontend + Groth16 over the
// bn254 scalar field), reduced from a full BLS-pairing circuit to a
// commitment-equality circuit matching this package's actual needs.
package snarkproof

import (
	"github.com/consensys/gnark/frontend"
)

// commitmentMixCoefficient is the fixed linear-combination coefficient used
// to fold two private field elements into one public commitment value,
// mirroring the teacher's computePubkeyCommitment technique.
const commitmentMixCoefficient = 7

// EqualityCircuit proves knowledge of (Low, High) such that
// Commitment == Low + coefficient*High, without revealing Low or High. Low
// and High are the two 128-bit halves of the commitment digest, reduced into
// the SNARK-friendly scalar field.
type EqualityCircuit struct {
	Commitment frontend.Variable `gnark:",public"`

	Low  frontend.Variable
	High frontend.Variable
}

// Define implements the circuit constraint: Commitment == Low + c*High.
func (c *EqualityCircuit) Define(api frontend.API) error {
	computed := api.Add(c.Low, api.Mul(c.High, commitmentMixCoefficient))
	api.AssertIsEqual(c.Commitment, computed)
	return nil
}
