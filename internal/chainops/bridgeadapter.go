package chainops

import (
	"context"
	"fmt"
	"sync"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// BridgeAdapter adapts a ChainOps driver to C8's bridge.Adapter contract, so
// the same per-chain driver connpool.Manager already holds can also serve
// as the broker's delivery path, instead of requiring a second adapter type
// per chain.
type BridgeAdapter struct {
	ops ChainOps

	mu              sync.Mutex
	txHashByMessage map[string]string
}

// NewBridgeAdapter wraps ops for bridge dispatch.
func NewBridgeAdapter(ops ChainOps) *BridgeAdapter {
	return &BridgeAdapter{ops: ops, txHashByMessage: make(map[string]string)}
}

// TransmitMessage submits the message's payload through the underlying
// chain's VerifyAIOutput call, the only write operation ChainOps exposes,
// and records the resulting transaction hash for later delivery
// confirmation. A neutral 0.5 confidence is passed since bridge messages
// carry an opaque payload, not a pre-scored verdict.
func (a *BridgeAdapter) TransmitMessage(ctx context.Context, msg *model.BridgeMessage) (bool, error) {
	result, err := a.ops.VerifyAIOutput(ctx, msg.MessageID, msg.Payload, 0.5)
	if err != nil {
		return false, fmt.Errorf("bridge adapter: transmit to %s: %w", a.ops.ChainType(), err)
	}
	if result.TxHash != "" {
		a.mu.Lock()
		a.txHashByMessage[msg.MessageID] = result.TxHash
		a.mu.Unlock()
	}
	return result.Status != model.ChainStatusError, nil
}

// ConfirmDelivery reports whether messageID's transmission completed and the
// underlying chain is still reachable. VerifyAIOutput resolves synchronously
// with no pending-transaction state, so there is nothing further to poll;
// ops.ConfirmMessageDelivery is reserved for votes submitted through
// SubmitConsensusVote, a different write path than bridge dispatch.
func (a *BridgeAdapter) ConfirmDelivery(ctx context.Context, messageID, targetChain string) (bool, error) {
	a.mu.Lock()
	_, ok := a.txHashByMessage[messageID]
	a.mu.Unlock()
	return ok && a.ops.Connected(), nil
}

// Operational reports the underlying chain's connection state.
func (a *BridgeAdapter) Operational() bool {
	return a.ops.Connected()
}
