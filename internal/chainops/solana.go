package chainops

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// SolanaConfirmationDepth is the Solana-style single-confirmation depth from
// §4.8's table.
const SolanaConfirmationDepth = 1

// SolanaStyleAdapter is the lightest of the three adapters: a mock chain
// driver using stdlib ed25519 directly, for the case where a chain family
// in the corpus has no matching SDK. It never contacts a real network.
type SolanaStyleAdapter struct {
	mu          sync.Mutex
	chainID     string
	priv        ed25519.PrivateKey
	pub         ed25519.PublicKey
	connected   bool
	blockHeight uint64
	votes       map[string][]model.ConsensusVote
	delivered   map[string]bool
	st          stats
}

// NewSolanaStyleAdapter builds an adapter with a freshly generated ed25519
// keypair.
func NewSolanaStyleAdapter(chainID string) (*SolanaStyleAdapter, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SolanaStyleAdapter{
		chainID:   chainID,
		priv:      priv,
		pub:       pub,
		votes:     make(map[string][]model.ConsensusVote),
		delivered: make(map[string]bool),
	}, nil
}

func (s *SolanaStyleAdapter) ChainType() string         { return "solana-style" }
func (s *SolanaStyleAdapter) ConfirmationDepth() uint64 { return SolanaConfirmationDepth }
func (s *SolanaStyleAdapter) Connected() bool           { s.mu.Lock(); defer s.mu.Unlock(); return s.connected }

func (s *SolanaStyleAdapter) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *SolanaStyleAdapter) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *SolanaStyleAdapter) GetChainMetrics(ctx context.Context) (model.ChainMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return model.ChainMetrics{}, ErrDisconnected
	}
	s.blockHeight++
	return nowMetrics(s.chainID, s.blockHeight, 0.4, 0.000005, 12.6), nil
}

func (s *SolanaStyleAdapter) VerifyAIOutput(ctx context.Context, agentID string, data []byte, confidence float64) (model.ChainVerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	if !s.connected {
		s.st.record(false, 0)
		return model.ChainVerificationResult{}, ErrDisconnected
	}

	sig := ed25519.Sign(s.priv, data)
	txHash := syntheticTxHash(sig)
	s.st.record(true, 0.000005)
	return model.ChainVerificationResult{
		ChainType:     s.ChainType(),
		TxHash:        txHash,
		BlockNumber:   s.blockHeight,
		Status:        statusFromConfidence(confidence),
		Confidence:    confidence,
		GasUsed:       0,
		ExecutionTime: time.Since(start),
	}, nil
}

func (s *SolanaStyleAdapter) SubmitConsensusVote(ctx context.Context, requestID string, vote model.ConsensusVote) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return "", ErrDisconnected
	}
	vote.Signature = ed25519.Sign(s.priv, []byte(requestID+vote.Value))
	s.votes[requestID] = append(s.votes[requestID], vote)
	txHash := syntheticTxHash([]byte(requestID + vote.VoterChain))
	s.delivered[txHash] = true
	return txHash, nil
}

func (s *SolanaStyleAdapter) GetConsensusVotes(ctx context.Context, requestID string) ([]model.ConsensusVote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConsensusVote(nil), s.votes[requestID]...), nil
}

func (s *SolanaStyleAdapter) GetStats() model.VerificationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.snapshot()
}

func (s *SolanaStyleAdapter) ConfirmMessageDelivery(ctx context.Context, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return false, ErrDisconnected
	}
	return s.delivered[txHash], nil
}
