package config

import (
	"os"
	"testing"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t,
		"TW_PARTICIPATING_CHAINS", "TW_CONSENSUS_ALGORITHM", "TW_CONSENSUS_THRESHOLD",
		"TW_MAX_CONCURRENT_CONSENSUS", "TW_RETRY_BACKOFF_SECONDS", "TW_PROOF_BACKEND",
		"TW_THRESHOLD_GROUP_ID", "TW_THRESHOLD_T", "TW_THRESHOLD_N",
	)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConsensusAlgorithm != model.AlgorithmAuto {
		t.Errorf("expected default algorithm %q, got %q", model.AlgorithmAuto, cfg.ConsensusAlgorithm)
	}
	if cfg.MaxConcurrentConsensus != 50 {
		t.Errorf("expected default max_concurrent_consensus 50, got %d", cfg.MaxConcurrentConsensus)
	}
	if len(cfg.RetryBackoffSeconds) != 4 || cfg.RetryBackoffSeconds[3] != 60 {
		t.Errorf("expected default retry backoff [1 5 15 60], got %v", cfg.RetryBackoffSeconds)
	}
	if cfg.ProofBackend != model.ProofSchemeHash {
		t.Errorf("expected default proof backend %q, got %q", model.ProofSchemeHash, cfg.ProofBackend)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t, "TW_PARTICIPATING_CHAINS", "TW_CONSENSUS_THRESHOLD", "TW_ORACLE_DEVIATION_THRESHOLD_BY_TYPE")
	os.Setenv("TW_PARTICIPATING_CHAINS", "solana-style, ethereum-style,cometbft-style")
	os.Setenv("TW_CONSENSUS_THRESHOLD", "0.8")
	os.Setenv("TW_ORACLE_DEVIATION_THRESHOLD_BY_TYPE", "price=0.02, reputation=0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"solana-style", "ethereum-style", "cometbft-style"}
	if len(cfg.ParticipatingChains) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.ParticipatingChains)
	}
	for i, c := range want {
		if cfg.ParticipatingChains[i] != c {
			t.Errorf("chain[%d] = %q, want %q", i, cfg.ParticipatingChains[i], c)
		}
	}
	if cfg.ConsensusThreshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", cfg.ConsensusThreshold)
	}
	if cfg.OracleDeviationByType["price"] != 0.02 || cfg.OracleDeviationByType["reputation"] != 0.1 {
		t.Errorf("unexpected oracle deviation map: %v", cfg.OracleDeviationByType)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := &Config{
		ConsensusAlgorithm:     model.AlgorithmAuto,
		ConsensusThreshold:     1.5,
		MaxConcurrentConsensus: 1,
		MaxRetryAttempts:       1,
		ConnectionTimeoutS:     1,
		HealthCheckIntervalS:   1,
		ProofBackend:           model.ProofSchemeHash,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an out-of-range consensus threshold")
	}
}

func TestValidateRejectsUnbalancedThresholdGroup(t *testing.T) {
	cfg := &Config{
		ConsensusAlgorithm:     model.AlgorithmAuto,
		ConsensusThreshold:     0.5,
		MaxConcurrentConsensus: 1,
		MaxRetryAttempts:       1,
		ConnectionTimeoutS:     1,
		HealthCheckIntervalS:   1,
		ProofBackend:           model.ProofSchemeHash,
		ThresholdGroupID:       "group-a",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when group id is set without t/n")
	}
}

func TestVerificationPolicyProjectsThresholdGroup(t *testing.T) {
	cfg := &Config{
		ParticipatingChains: []string{"solana-style"},
		ConsensusAlgorithm:  model.AlgorithmWeighted,
		ProofBackend:        model.ProofSchemeMerkle,
		ThresholdGroupID:    "group-a",
		ThresholdT:          2,
		ThresholdN:          3,
	}
	policy := cfg.VerificationPolicy()
	if policy.ThresholdSignatureGroup == nil {
		t.Fatal("expected a non-nil threshold signature group")
	}
	if policy.ThresholdSignatureGroup.T != 2 || policy.ThresholdSignatureGroup.N != 3 {
		t.Errorf("unexpected threshold group: %+v", policy.ThresholdSignatureGroup)
	}
	if policy.ProofBackend != model.ProofSchemeMerkle {
		t.Errorf("expected proof backend to propagate, got %q", policy.ProofBackend)
	}
}
