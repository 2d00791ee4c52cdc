package bls

import (
	"bytes"
	"testing"
)

func TestInitialize(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestGenerateKeyPair(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	if !IsValidPrivateKeySize(sk.Bytes()) {
		t.Errorf("invalid private key size: got %d, want %d", len(sk.Bytes()), PrivateKeySize)
	}
	if !IsValidPublicKeySize(pk.Bytes()) {
		t.Errorf("invalid public key size: got %d, want %d", len(pk.Bytes()), PublicKeySize)
	}
}

func TestGenerateKeyPairFromSeed(t *testing.T) {
	seed := []byte("this is a test seed for BLS key generation - 32+ bytes required")

	sk1, pk1, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("generate from seed: %v", err)
	}
	sk2, pk2, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("generate from seed again: %v", err)
	}

	if !bytes.Equal(sk1.Bytes(), sk2.Bytes()) {
		t.Error("same seed produced different private keys")
	}
	if !bytes.Equal(pk1.Bytes(), pk2.Bytes()) {
		t.Error("same seed produced different public keys")
	}
}

func TestSignAndVerify(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	message := []byte("TrustWrapper verification result: model_xyz passed")
	sig := sk.Sign(message)

	if !pk.Verify(sig, message) {
		t.Error("valid signature failed to verify")
	}
	if pk.Verify(sig, []byte("tampered")) {
		t.Error("signature verified against wrong message")
	}
}

func TestSignWithDomainRequiresMatchingDomain(t *testing.T) {
	sk, pk, _ := GenerateKeyPair()
	message := []byte("vote:chain-1:pass")

	sig := sk.SignWithDomain(message, DomainVote)
	if !pk.VerifyWithDomain(sig, message, DomainVote) {
		t.Error("failed to verify signature under matching domain")
	}
	if pk.VerifyWithDomain(sig, message, DomainAttestation) {
		t.Error("verified signature under mismatched domain")
	}
}

func TestAggregateSignatures(t *testing.T) {
	message := []byte("aggregate me")

	var sigs []*Signature
	var pubs []*PublicKey
	for i := 0; i < 4; i++ {
		sk, pk, _ := GenerateKeyPair()
		sigs = append(sigs, sk.Sign(message))
		pubs = append(pubs, pk)
	}

	aggSig, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate signatures: %v", err)
	}
	if !VerifyAggregateSignature(aggSig, pubs, message) {
		t.Error("aggregate signature failed to verify")
	}
}

func TestKeyManagerGenerateFromSignerID(t *testing.T) {
	km1 := NewKeyManager("")
	if err := km1.GenerateFromSignerID("signer-1", "group-a"); err != nil {
		t.Fatalf("generate from signer id: %v", err)
	}
	km2 := NewKeyManager("")
	if err := km2.GenerateFromSignerID("signer-1", "group-a"); err != nil {
		t.Fatalf("generate from signer id: %v", err)
	}
	if km1.GetPublicKeyHex() != km2.GetPublicKeyHex() {
		t.Error("same signer/group id produced different keys")
	}

	km3 := NewKeyManager("")
	if err := km3.GenerateFromSignerID("signer-2", "group-a"); err != nil {
		t.Fatalf("generate from signer id: %v", err)
	}
	if km1.GetPublicKeyHex() == km3.GetPublicKeyHex() {
		t.Error("different signer ids produced the same key")
	}
}
