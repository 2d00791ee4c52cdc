package chainops

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// EthereumConfirmationDepth is the Ethereum-family confirmation depth from
// §4.8's table.
const EthereumConfirmationDepth = 12

// EthereumAdapter is a thin per-chain driver for EVM-family chains, grounded
// on the teacher's pkg/ethereum client (address derivation and tx signing
// via go-ethereum's crypto package) but reduced to the C6 contract — no
// contract ABI plumbing, since the core never interprets the verdict
// on-chain.
type EthereumAdapter struct {
	mu          sync.Mutex
	chainID     string
	key         *ecdsa.PrivateKey
	connected   bool
	blockHeight uint64
	votes       map[string][]model.ConsensusVote
	delivered   map[string]bool
	st          stats
}

// NewEthereumAdapter builds an adapter signing submissions with key.
func NewEthereumAdapter(chainID string, key *ecdsa.PrivateKey) *EthereumAdapter {
	return &EthereumAdapter{
		chainID:   chainID,
		key:       key,
		votes:     make(map[string][]model.ConsensusVote),
		delivered: make(map[string]bool),
	}
}

func (e *EthereumAdapter) ChainType() string         { return "ethereum-style" }
func (e *EthereumAdapter) ConfirmationDepth() uint64 { return EthereumConfirmationDepth }
func (e *EthereumAdapter) Connected() bool           { e.mu.Lock(); defer e.mu.Unlock(); return e.connected }

func (e *EthereumAdapter) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = true
	return nil
}

func (e *EthereumAdapter) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	return nil
}

// Address returns the hex-encoded address derived from the adapter's
// signing key, or the empty string if it holds none (read-only mode).
func (e *EthereumAdapter) Address() string {
	if e.key == nil {
		return ""
	}
	return crypto.PubkeyToAddress(e.key.PublicKey).Hex()
}

func (e *EthereumAdapter) GetChainMetrics(ctx context.Context) (model.ChainMetrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return model.ChainMetrics{}, ErrDisconnected
	}
	e.blockHeight++
	return nowMetrics(e.chainID, e.blockHeight, 12.0, 21000, 180), nil
}

func (e *EthereumAdapter) VerifyAIOutput(ctx context.Context, agentID string, data []byte, confidence float64) (model.ChainVerificationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()
	if !e.connected {
		e.st.record(false, 0)
		return model.ChainVerificationResult{}, ErrDisconnected
	}

	hash := crypto.Keccak256(data)
	txHash := syntheticTxHash(hash)
	e.st.record(true, 0.0021)

	return model.ChainVerificationResult{
		ChainType:     e.ChainType(),
		TxHash:        txHash,
		BlockNumber:   e.blockHeight,
		Status:        statusFromConfidence(confidence),
		Confidence:    confidence,
		GasUsed:       21000,
		ExecutionTime: time.Since(start),
	}, nil
}

func (e *EthereumAdapter) SubmitConsensusVote(ctx context.Context, requestID string, vote model.ConsensusVote) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return "", ErrDisconnected
	}
	if e.key != nil {
		digest := crypto.Keccak256([]byte(e.Address() + requestID + vote.Value))
		sig, err := crypto.Sign(digest, e.key)
		if err == nil {
			vote.Signature = sig
		}
	}
	e.votes[requestID] = append(e.votes[requestID], vote)
	txHash := syntheticTxHash([]byte(requestID + vote.VoterChain))
	e.delivered[txHash] = true
	return txHash, nil
}

func (e *EthereumAdapter) GetConsensusVotes(ctx context.Context, requestID string) ([]model.ConsensusVote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.ConsensusVote(nil), e.votes[requestID]...), nil
}

func (e *EthereumAdapter) GetStats() model.VerificationStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

func (e *EthereumAdapter) ConfirmMessageDelivery(ctx context.Context, txHash string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return false, ErrDisconnected
	}
	return e.delivered[txHash], nil
}
