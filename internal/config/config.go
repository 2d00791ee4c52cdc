// Package config loads the §6 "Configuration (recognized options)" table
// from the environment, the same getEnv-family idiom the rest of this
// module's teacher lineage uses, generalized to TrustWrapper's own fields
// instead of Certen's chain/database/Firestore surface.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lamassu-labs/trustwrapper/internal/connpool"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Config holds every recognized option from §6.
type Config struct {
	ParticipatingChains     []string
	ConsensusAlgorithm      model.ConsensusAlgorithm
	ConsensusThreshold      float64
	TimeoutSeconds          int
	MaxConcurrentConsensus  int
	ConnectionTimeoutS      int
	MaxRetryAttempts        int
	HealthCheckIntervalS    int
	RetryBackoffSeconds     []int
	OracleDeviationByType   map[string]float64

	ThresholdSignatureScheme string
	ThresholdGroupID         string
	ThresholdT               int
	ThresholdN               int

	ProofBackend model.ProofScheme

	ListenAddr  string
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from environment variables, applying the
// defaults named throughout §4 and §6 (retry_backoff_seconds: [1,5,15,60],
// max_concurrent_consensus: 50, connection_timeout_s: 10, etc).
func Load() (*Config, error) {
	cfg := &Config{
		ParticipatingChains:    splitCSV(getEnv("TW_PARTICIPATING_CHAINS", "")),
		ConsensusAlgorithm:     model.ConsensusAlgorithm(getEnv("TW_CONSENSUS_ALGORITHM", string(model.AlgorithmAuto))),
		ConsensusThreshold:     getEnvFloat("TW_CONSENSUS_THRESHOLD", 0.67),
		TimeoutSeconds:         getEnvInt("TW_TIMEOUT_SECONDS", 30),
		MaxConcurrentConsensus: getEnvInt("TW_MAX_CONCURRENT_CONSENSUS", 50),
		ConnectionTimeoutS:     getEnvInt("TW_CONNECTION_TIMEOUT_S", 10),
		MaxRetryAttempts:       getEnvInt("TW_MAX_RETRY_ATTEMPTS", 3),
		HealthCheckIntervalS:   getEnvInt("TW_HEALTH_CHECK_INTERVAL_S", 30),
		RetryBackoffSeconds:    splitCSVInts(getEnv("TW_RETRY_BACKOFF_SECONDS", "1,5,15,60"), []int{1, 5, 15, 60}),
		OracleDeviationByType:  splitCSVFloatMap(getEnv("TW_ORACLE_DEVIATION_THRESHOLD_BY_TYPE", "")),

		ThresholdSignatureScheme: getEnv("TW_THRESHOLD_SCHEME", ""),
		ThresholdGroupID:         getEnv("TW_THRESHOLD_GROUP_ID", ""),
		ThresholdT:               getEnvInt("TW_THRESHOLD_T", 0),
		ThresholdN:               getEnvInt("TW_THRESHOLD_N", 0),

		ProofBackend: model.ProofScheme(getEnv("TW_PROOF_BACKEND", string(model.ProofSchemeHash))),

		ListenAddr:  getEnv("TW_LISTEN_ADDR", "0.0.0.0:8080"),
		MetricsAddr: getEnv("TW_METRICS_ADDR", "0.0.0.0:9090"),
		LogLevel:    getEnv("TW_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks that the recognized options are internally consistent.
// Unlike the teacher's Validate, nothing here requires network credentials
// or secrets — TrustWrapper's core has no database or JWT surface — but the
// numeric ranges the consensus and connection pool layers depend on are
// still enforced before a caller wires them in.
func (c *Config) Validate() error {
	var errs []string

	if c.ConsensusThreshold <= 0 || c.ConsensusThreshold > 1 {
		errs = append(errs, "TW_CONSENSUS_THRESHOLD must be in (0, 1]")
	}
	switch c.ConsensusAlgorithm {
	case model.AlgorithmAuto, model.AlgorithmPBFT, model.AlgorithmHotStuff, model.AlgorithmWeighted, model.AlgorithmSimpleMajority:
	default:
		errs = append(errs, fmt.Sprintf("TW_CONSENSUS_ALGORITHM %q is not a recognized algorithm", c.ConsensusAlgorithm))
	}
	if c.MaxConcurrentConsensus <= 0 {
		errs = append(errs, "TW_MAX_CONCURRENT_CONSENSUS must be positive")
	}
	if c.MaxRetryAttempts <= 0 {
		errs = append(errs, "TW_MAX_RETRY_ATTEMPTS must be positive")
	}
	if c.ConnectionTimeoutS <= 0 {
		errs = append(errs, "TW_CONNECTION_TIMEOUT_S must be positive")
	}
	if c.HealthCheckIntervalS <= 0 {
		errs = append(errs, "TW_HEALTH_CHECK_INTERVAL_S must be positive")
	}
	switch c.ProofBackend {
	case model.ProofSchemeHash, model.ProofSchemeMerkle, model.ProofSchemeSNARK:
	default:
		errs = append(errs, fmt.Sprintf("TW_PROOF_BACKEND %q is not a recognized scheme", c.ProofBackend))
	}
	if (c.ThresholdGroupID != "") != (c.ThresholdT > 0 && c.ThresholdN > 0) {
		errs = append(errs, "TW_THRESHOLD_GROUP_ID requires both TW_THRESHOLD_T and TW_THRESHOLD_N, and vice versa")
	}
	if c.ThresholdT > c.ThresholdN {
		errs = append(errs, "TW_THRESHOLD_T must not exceed TW_THRESHOLD_N")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ConnPoolConfig projects the connection-pool-relevant options onto
// connpool.Config, the struct C7's Manager actually takes.
func (c *Config) ConnPoolConfig() connpool.Config {
	return connpool.Config{
		HealthCheckIntervalS: c.HealthCheckIntervalS,
		MaxRetryAttempts:     c.MaxRetryAttempts,
		ConnectionTimeoutS:   c.ConnectionTimeoutS,
	}
}

// VerificationPolicy projects the process-wide options onto a default
// model.VerificationPolicy, the per-call policy C12's Verify accepts.
// Callers may still override individual fields per request.
func (c *Config) VerificationPolicy() model.VerificationPolicy {
	var group *model.ThresholdSignatureRequest
	if c.ThresholdGroupID != "" {
		group = &model.ThresholdSignatureRequest{
			Scheme:  model.SignatureScheme(c.ThresholdSignatureScheme),
			GroupID: c.ThresholdGroupID,
			T:       c.ThresholdT,
			N:       c.ThresholdN,
		}
	}
	return model.VerificationPolicy{
		TargetChains:            c.ParticipatingChains,
		ConsensusAlgorithm:      c.ConsensusAlgorithm,
		ThresholdSignatureGroup: group,
		ProofBackend:            c.ProofBackend,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			return iv
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv
		}
	}
	return defaultValue
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCSVInts(value string, defaultValue []int) []int {
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		iv, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, iv)
	}
	return out
}

// splitCSVFloatMap parses "oracle_type=threshold,..." pairs, e.g.
// "price=0.02,reputation=0.1".
func splitCSVFloatMap(value string) map[string]float64 {
	if value == "" {
		return nil
	}
	out := make(map[string]float64)
	for _, pair := range strings.Split(value, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		fv, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = fv
	}
	return out
}
