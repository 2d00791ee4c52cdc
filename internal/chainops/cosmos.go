package chainops

import (
	"context"
	"sync"
	"time"

	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// CosmosConfirmationDepth is the Solana-style single-confirmation depth
// shared by fast-finality chains per §4.8's table. Despite the name, this
// adapter stands in for CometBFT-based chains, which finalize in one block.
const CosmosConfirmationDepth = 1

// CosmosVoteAdapter shapes consensus-vote submission around CometBFT's
// validator key types without running a real node — grounded on the
// teacher's bft_integration.go, whose genesis/broadcast machinery this
// adapter deliberately does not reuse (§4.6 only needs vote signing, not a
// live chain).
type CosmosVoteAdapter struct {
	mu          sync.Mutex
	chainID     string
	priv        cmted25519.PrivKey
	connected   bool
	blockHeight uint64
	votes       map[string][]model.ConsensusVote
	delivered   map[string]bool
	st          stats
}

// NewCosmosVoteAdapter builds an adapter signing votes with priv. If priv is
// nil a fresh validator key is generated.
func NewCosmosVoteAdapter(chainID string, priv cmted25519.PrivKey) *CosmosVoteAdapter {
	if len(priv) == 0 {
		priv = cmted25519.GenPrivKey()
	}
	return &CosmosVoteAdapter{
		chainID:   chainID,
		priv:      priv,
		votes:     make(map[string][]model.ConsensusVote),
		delivered: make(map[string]bool),
	}
}

func (c *CosmosVoteAdapter) ChainType() string         { return "cosmos-style" }
func (c *CosmosVoteAdapter) ConfirmationDepth() uint64 { return CosmosConfirmationDepth }
func (c *CosmosVoteAdapter) Connected() bool           { c.mu.Lock(); defer c.mu.Unlock(); return c.connected }

func (c *CosmosVoteAdapter) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *CosmosVoteAdapter) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *CosmosVoteAdapter) GetChainMetrics(ctx context.Context) (model.ChainMetrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return model.ChainMetrics{}, ErrDisconnected
	}
	c.blockHeight++
	return nowMetrics(c.chainID, c.blockHeight, 1.0, 0, 1), nil
}

func (c *CosmosVoteAdapter) VerifyAIOutput(ctx context.Context, agentID string, data []byte, confidence float64) (model.ChainVerificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	if !c.connected {
		c.st.record(false, 0)
		return model.ChainVerificationResult{}, ErrDisconnected
	}

	txHash := syntheticTxHash(data)
	c.st.record(true, 0)
	return model.ChainVerificationResult{
		ChainType:     c.ChainType(),
		TxHash:        txHash,
		BlockNumber:   c.blockHeight,
		Status:        statusFromConfidence(confidence),
		Confidence:    confidence,
		GasUsed:       0,
		ExecutionTime: time.Since(start),
	}, nil
}

func (c *CosmosVoteAdapter) SubmitConsensusVote(ctx context.Context, requestID string, vote model.ConsensusVote) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return "", ErrDisconnected
	}
	sig, err := c.priv.Sign([]byte(requestID + vote.Value))
	if err == nil {
		vote.Signature = sig
	}
	c.votes[requestID] = append(c.votes[requestID], vote)
	txHash := syntheticTxHash([]byte(requestID + vote.VoterChain))
	c.delivered[txHash] = true
	return txHash, nil
}

func (c *CosmosVoteAdapter) GetConsensusVotes(ctx context.Context, requestID string) ([]model.ConsensusVote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ConsensusVote(nil), c.votes[requestID]...), nil
}

func (c *CosmosVoteAdapter) GetStats() model.VerificationStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.snapshot()
}

func (c *CosmosVoteAdapter) ConfirmMessageDelivery(ctx context.Context, txHash string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false, ErrDisconnected
	}
	return c.delivered[txHash], nil
}

// PubKey returns the validator's public key, usable by an external BFT
// quorum check (internal/consensus) to validate vote signatures.
func (c *CosmosVoteAdapter) PubKey() cmted25519.PubKey {
	return c.priv.PubKey().(cmted25519.PubKey)
}
