package snarkproof

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Backend is the Groth16-backed SNARK proof backend (C5 option c). Setup is
// amortized across Prove/Verify calls: the circuit is compiled and the
// proving/verifying keys generated once, lazily, on first use.
type Backend struct {
	mu    sync.Mutex
	cs    constraint.ConstraintSystem
	pk    groth16.ProvingKey
	vk    groth16.VerifyingKey
	ready bool
}

// New returns a snarkproof Backend; setup runs lazily on first Prove/Verify.
func New() *Backend { return &Backend{} }

func (b *Backend) Scheme() model.ProofScheme { return model.ProofSchemeSNARK }

// setup compiles the circuit and runs the Groth16 trusted setup once.
func (b *Backend) setup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}

	var circuit EqualityCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}

	b.cs = cs
	b.pk = pk
	b.vk = vk
	b.ready = true
	return nil
}

func splitDigest(d [32]byte) (*big.Int, *big.Int) {
	low := new(big.Int).SetBytes(d[16:32])
	high := new(big.Int).SetBytes(d[0:16])
	return low, high
}

func combine(low, high *big.Int) *big.Int {
	out := new(big.Int).Mul(high, big.NewInt(commitmentMixCoefficient))
	out.Add(out, low)
	return out
}

// Prove proves knowledge of the digest's low/high halves satisfying the
// circuit's linear relation, without revealing them.
func (b *Backend) Prove(in commitment.CommitInput, c model.Commitment) (model.Proof, error) {
	if err := b.setup(); err != nil {
		return model.Proof{}, err
	}

	low, high := splitDigest(c.Digest)
	commitVal := combine(low, high)

	assignment := &EqualityCircuit{Commitment: commitVal, Low: low, High: high}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return model.Proof{}, err
	}

	proof, err := groth16.Prove(b.cs, b.pk, witness)
	if err != nil {
		return model.Proof{}, err
	}

	var blob bytes.Buffer
	if _, err := proof.WriteTo(&blob); err != nil {
		return model.Proof{}, err
	}

	return model.Proof{
		Scheme:     model.ProofSchemeSNARK,
		Blob:       blob.Bytes(),
		Commitment: c,
		PublicInputs: map[string]interface{}{
			"circuit_commitment": commitVal.String(),
		},
	}, nil
}

// Verify checks the Groth16 proof against its public "circuit_commitment"
// input.
func (b *Backend) Verify(p model.Proof) (bool, error) {
	if err := b.setup(); err != nil {
		return false, err
	}

	commitStr, _ := p.PublicInputs["circuit_commitment"].(string)
	commitVal, ok := new(big.Int).SetString(commitStr, 10)
	if !ok {
		return false, commitment.ErrVerifyFailed
	}

	gproof := groth16.NewProof(ecc.BN254)
	if _, err := gproof.ReadFrom(bytes.NewReader(p.Blob)); err != nil {
		return false, err
	}

	assignment := &EqualityCircuit{Commitment: commitVal}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}

	if err := groth16.Verify(gproof, b.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}
