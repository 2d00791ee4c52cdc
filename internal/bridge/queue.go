package bridge

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// queueItem wraps a BridgeMessage with a monotonic sequence number so that
// messages of equal priority drain FIFO, matching the original's plain
// queue ordering within the priority layer the broker adds on top.
type queueItem struct {
	msg   *model.BridgeMessage
	seq   uint64
	index int
}

// priorityHeap is a container/heap max-heap on (priority, insertion order):
// higher Priority drains first; ties break by earlier seq.
type priorityHeap []*queueItem

func (pq priorityHeap) Len() int { return len(pq) }

func (pq priorityHeap) Less(i, j int) bool {
	if pq[i].msg.Priority != pq[j].msg.Priority {
		return pq[i].msg.Priority > pq[j].msg.Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityHeap) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}

func (pq *priorityHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityHeap) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityHeap)(nil)

// Queue is the thread-safe, priority-ordered message queue, grounded on the
// original's MessageQueue (max size, pending/processing bookkeeping) with
// asyncio.Queue replaced by a container/heap plus a wake channel.
type Queue struct {
	mu         sync.Mutex
	h          priorityHeap
	pending    map[string]*model.BridgeMessage
	processing map[string]bool
	maxSize    int
	seq        uint64
	wake       chan struct{}
}

// NewQueue builds a Queue bounded at maxSize messages.
func NewQueue(maxSize int) *Queue {
	return &Queue{
		pending:    make(map[string]*model.BridgeMessage),
		processing: make(map[string]bool),
		maxSize:    maxSize,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue adds msg to the queue, returning false if the queue is full.
func (q *Queue) Enqueue(msg *model.BridgeMessage) bool {
	q.mu.Lock()
	if len(q.h) >= q.maxSize {
		q.mu.Unlock()
		return false
	}
	q.seq++
	heap.Push(&q.h, &queueItem{msg: msg, seq: q.seq})
	q.pending[msg.MessageID] = msg
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Dequeue blocks until a message is available, the context is canceled, or
// timeout elapses with no message (matching the original's
// asyncio.wait_for(..., timeout=1.0) poll).
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) *model.BridgeMessage {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.h) > 0 {
			item := heap.Pop(&q.h).(*queueItem)
			q.processing[item.msg.MessageID] = true
			q.mu.Unlock()
			return item.msg
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-q.wake:
		}
	}
}

// MarkCompleted removes id from the processing/pending sets and records the
// final status, mirroring mark_completed.
func (q *Queue) MarkCompleted(id string, success bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, id)
	if msg, ok := q.pending[id]; ok {
		if success {
			msg.Status = model.BridgeStatusConfirmed
		} else {
			msg.Status = model.BridgeStatusFailed
		}
		delete(q.pending, id)
	}
}

func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) ProcessingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.processing)
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
