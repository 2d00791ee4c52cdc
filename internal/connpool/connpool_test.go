package connpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// fakeAdapter is a minimal chainops.ChainOps for exercising connpool's
// retry/health-tracking logic without a real chain dependency.
type fakeAdapter struct {
	mu         sync.Mutex
	chainType  string
	connectErr error
	metricsErr error
}

func (f *fakeAdapter) ChainType() string                                             { return f.chainType }
func (f *fakeAdapter) ConfirmationDepth() uint64                                      { return 1 }
func (f *fakeAdapter) Connected() bool                                                { return true }
func (f *fakeAdapter) Disconnect(ctx context.Context) error                           { return nil }
func (f *fakeAdapter) GetConsensusVotes(ctx context.Context, id string) ([]model.ConsensusVote, error) {
	return nil, nil
}
func (f *fakeAdapter) SubmitConsensusVote(ctx context.Context, id string, v model.ConsensusVote) (string, error) {
	return "0xfake", nil
}
func (f *fakeAdapter) GetStats() model.VerificationStats { return model.VerificationStats{} }
func (f *fakeAdapter) ConfirmMessageDelivery(ctx context.Context, txHash string) (bool, error) {
	return true, nil
}
func (f *fakeAdapter) VerifyAIOutput(ctx context.Context, agentID string, data []byte, confidence float64) (model.ChainVerificationResult, error) {
	return model.ChainVerificationResult{}, nil
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeAdapter) GetChainMetrics(ctx context.Context) (model.ChainMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metricsErr != nil {
		return model.ChainMetrics{}, f.metricsErr
	}
	return model.ChainMetrics{ChainID: f.chainType}, nil
}

func fastConfig() Config {
	return Config{HealthCheckIntervalS: 1, MaxRetryAttempts: 2, ConnectionTimeoutS: 1}
}

func TestManager_AddSucceeds(t *testing.T) {
	m := New(fastConfig(), nil)
	a := &fakeAdapter{chainType: "fake-1"}

	if err := m.Add(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Get("fake-1"); !ok {
		t.Fatalf("expected fake-1 to be healthy")
	}
	if len(m.HealthyAdapters()) != 1 {
		t.Fatalf("expected 1 healthy adapter")
	}
}

func TestManager_AddFailsButStaysInPool(t *testing.T) {
	m := New(fastConfig(), nil)
	a := &fakeAdapter{chainType: "fake-2", connectErr: errors.New("boom")}

	if err := m.Add(context.Background(), a); err == nil {
		t.Fatalf("expected connection error")
	}
	if _, ok := m.Get("fake-2"); ok {
		t.Fatalf("expected fake-2 to be unhealthy")
	}
	status := m.Status()
	if _, present := status["fake-2"]; !present {
		t.Fatalf("expected adapter to remain tracked despite failed connect")
	}
}

func TestManager_RemoveUnknownChain(t *testing.T) {
	m := New(fastConfig(), nil)
	if err := m.Remove(context.Background(), "nope"); err != ErrUnknownChain {
		t.Fatalf("expected ErrUnknownChain, got %v", err)
	}
}

func TestManager_HealthLoopMarksUnhealthyAfterFailures(t *testing.T) {
	m := New(fastConfig(), nil)
	a := &fakeAdapter{chainType: "fake-3"}

	if err := m.Add(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.mu.Lock()
	a.metricsErr = errors.New("chain unreachable")
	a.connectErr = errors.New("chain unreachable")
	a.mu.Unlock()

	if err := m.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Get("fake-3"); !ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected fake-3 to become unhealthy after repeated failures")
}
