package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

type fakeAdapter struct {
	transmitted int32
	confirmed   int32
	failFirstN  int32
	calls       int32
}

func (f *fakeAdapter) TransmitMessage(ctx context.Context, msg *model.BridgeMessage) (bool, error) {
	n := atomic.AddInt32(&f.calls, 1)
	atomic.AddInt32(&f.transmitted, 1)
	if n <= f.failFirstN {
		return false, nil
	}
	return true, nil
}

func (f *fakeAdapter) ConfirmDelivery(ctx context.Context, messageID, targetChain string) (bool, error) {
	atomic.AddInt32(&f.confirmed, 1)
	return true, nil
}

func (f *fakeAdapter) Operational() bool { return true }

func newTestBroker(t *testing.T, a Adapter) *Broker {
	t.Helper()
	b := New(100, nil)
	b.Initialize(map[string]Adapter{"target-1": a}, []model.BridgeRoute{
		{SourceChain: "source-1", TargetChain: "target-1", Active: true},
	})
	return b
}

func TestBroker_SendRequiresActiveRoute(t *testing.T) {
	b := newTestBroker(t, &fakeAdapter{})
	if _, err := b.Send(model.MsgSync, "source-1", "unknown", nil, 0, 0); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestBroker_SendRejectsSameChain(t *testing.T) {
	b := newTestBroker(t, &fakeAdapter{})
	_, err := b.Send(model.MsgSync, "source-1", "source-1", nil, 0, 0)
	if !errors.Is(err, ErrSameChain) {
		t.Fatalf("expected ErrSameChain, got %v", err)
	}
}

func TestBroker_DeliversMessage(t *testing.T) {
	a := &fakeAdapter{}
	b := newTestBroker(t, a)
	if err := b.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.Stop()

	id, err := b.Send(model.MsgVerificationRequest, "source-1", "target-1", []byte("payload"), 0, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := b.Status(id); ok && status == model.BridgeStatusConfirmed {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected message %s to be confirmed", id)
}

func TestBroker_RetriesOnTransmitFailure(t *testing.T) {
	a := &fakeAdapter{failFirstN: 1}
	b := newTestBroker(t, a)
	if err := b.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.Stop()

	id, err := b.Send(model.MsgVerificationRequest, "source-1", "target-1", nil, 0, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := b.Status(id); ok && status == model.BridgeStatusConfirmed {
			stats := b.Snapshot()
			if stats.RetryAttempts == 0 {
				t.Fatalf("expected at least one retry attempt")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected message %s to eventually be confirmed", id)
}

func TestBroker_PriorityOrdering(t *testing.T) {
	q := NewQueue(10)
	low := &model.BridgeMessage{MessageID: "low", Priority: 0, Deadline: time.Now().Add(time.Minute)}
	high := &model.BridgeMessage{MessageID: "high", Priority: 9, Deadline: time.Now().Add(time.Minute)}
	q.Enqueue(low)
	q.Enqueue(high)

	first := q.Dequeue(context.Background(), time.Second)
	if first == nil || first.MessageID != "high" {
		t.Fatalf("expected high priority message first, got %+v", first)
	}
}
