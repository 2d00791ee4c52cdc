// Package chainops implements the universal chain adapter (C6) as a
// capability interface (per §9's redesign note replacing the
// BaseAgent/IUniversalChainAdapter inheritance hierarchy) plus per-chain
// adapters. Adapters are thin: they translate the shared data model into
// chain-specific transactions and back, and never interpret the verdict.
package chainops

import (
	"context"
	"errors"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrDisconnected is returned by any operation requiring a live connection.
var ErrDisconnected = errors.New("chainops: adapter not connected")

// ChainOps is the per-chain capability interface (§4.6's contract).
type ChainOps interface {
	ChainType() string
	ConfirmationDepth() uint64

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool

	GetChainMetrics(ctx context.Context) (model.ChainMetrics, error)
	VerifyAIOutput(ctx context.Context, agentID string, verificationData []byte, confidence float64) (model.ChainVerificationResult, error)
	SubmitConsensusVote(ctx context.Context, requestID string, vote model.ConsensusVote) (txHash string, err error)
	GetConsensusVotes(ctx context.Context, requestID string) ([]model.ConsensusVote, error)
	GetStats() model.VerificationStats
	// ConfirmMessageDelivery reports whether the chain has observed the
	// message's submission transaction pass ConfirmationDepth() confirmations.
	ConfirmMessageDelivery(ctx context.Context, txHash string) (bool, error)
}

// statusFromConfidence maps a chain-local confidence check to the §3
// ChainVerificationStatus using the same thresholds as TrustScore verdicts.
func statusFromConfidence(confidence float64) model.ChainVerificationStatus {
	switch model.VerdictFromScore(confidence) {
	case model.VerdictPass:
		return model.ChainStatusVerified
	case model.VerdictBorderline:
		return model.ChainStatusPending
	default:
		return model.ChainStatusRejected
	}
}

// syntheticTxHash builds a deterministic-looking mock transaction hash; the
// interface never distinguishes mock vs live to its callers (§4.6).
func syntheticTxHash(seed []byte) string {
	sum := fnv64(seed)
	const hextable = "0123456789abcdef"
	out := make([]byte, 18)
	out[0], out[1] = '0', 'x'
	for i := 0; i < 16; i++ {
		out[2+i] = hextable[(sum>>(uint(i)*4))&0xf]
	}
	return string(out)
}

func fnv64(data []byte) uint64 {
	var h uint64 = 14695981039346656037
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

type stats struct {
	total, successful, failed uint64
	totalFee                  float64
}

func (s *stats) record(ok bool, fee float64) {
	s.total++
	if ok {
		s.successful++
	} else {
		s.failed++
	}
	s.totalFee += fee
}

func (s *stats) snapshot() model.VerificationStats {
	avg := 0.0
	if s.total > 0 {
		avg = s.totalFee / float64(s.total)
	}
	return model.VerificationStats{Total: s.total, Successful: s.successful, Failed: s.failed, AvgFee: avg}
}

func nowMetrics(chainID string, height uint64, blockTimeS, gasOrFee, finalityS float64) model.ChainMetrics {
	return model.ChainMetrics{
		ChainID:     chainID,
		BlockHeight: height,
		BlockTimeS:  blockTimeS,
		GasOrFee:    gasOrFee,
		FinalityS:   finalityS,
		LastUpdated: time.Now(),
	}
}
