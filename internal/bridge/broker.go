// Package bridge implements the cross-chain message broker (C8): a
// priority-queued, worker-pool-driven delivery pipeline with retry backoff
// and route health tracking, grounded on
// original_source/trustwrapper-enterprise/src/message_broker.py's
// CrossChainMessageBroker.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrNoRoute is returned when no active route exists between two chains.
var ErrNoRoute = errors.New("bridge: no active route")

// ErrQueueFull is returned when the broker's message queue is at capacity.
var ErrQueueFull = errors.New("bridge: message queue full")

// ErrSameChain is returned when a message's source and target chain are
// identical: I3 requires a BridgeMessage to be rejected at construction in
// that case, rather than relying on the route table never containing a
// same-chain entry.
var ErrSameChain = errors.New("bridge: source and target chain must differ")

// retryDelays is the original's fixed exponential-ish backoff schedule.
var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second}

// Adapter delivers a BridgeMessage to its target chain and confirms receipt,
// grounded on the original's IBridgeAdapter.
type Adapter interface {
	TransmitMessage(ctx context.Context, msg *model.BridgeMessage) (bool, error)
	ConfirmDelivery(ctx context.Context, messageID, targetChain string) (bool, error)
	Operational() bool
}

// Stats mirrors get_broker_stats's counters.
type Stats struct {
	TotalMessages      uint64
	SuccessfulMessages uint64
	FailedMessages     uint64
	RetryAttempts      uint64
	Timeouts           uint64
}

// routeCounter accumulates per-route delivery counts and a running average
// latency, read by internal/bridgehealth to populate model.BridgeMetrics.
type routeCounter struct {
	mu           sync.Mutex
	total        uint64
	success      uint64
	failed       uint64
	avgLatencyMS float64
}

func (c *routeCounter) record(success bool, latencyMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if success {
		c.success++
	} else {
		c.failed++
	}
	if c.total == 1 {
		c.avgLatencyMS = latencyMS
	} else {
		c.avgLatencyMS = c.avgLatencyMS*0.9 + latencyMS*0.1
	}
}

func (c *routeCounter) snapshot() (total, success, failed uint64, avgLatencyMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.success, c.failed, c.avgLatencyMS
}

// Broker routes and delivers BridgeMessage values across registered chain
// adapters using a bounded worker pool.
type Broker struct {
	mu       sync.RWMutex
	queue    *Queue
	adapters map[string]Adapter
	routes   map[string]*model.BridgeRoute
	active   map[string]*model.BridgeMessage
	counters map[string]*routeCounter

	messageTimeout      time.Duration
	healthCheckInterval time.Duration
	logger              *log.Logger

	stats     Stats
	startedAt time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New builds a Broker with a bounded queue of maxQueueSize messages.
func New(maxQueueSize int, logger *log.Logger) *Broker {
	if logger == nil {
		logger = log.Default()
	}
	return &Broker{
		queue:               NewQueue(maxQueueSize),
		adapters:            make(map[string]Adapter),
		routes:              make(map[string]*model.BridgeRoute),
		active:              make(map[string]*model.BridgeMessage),
		counters:            make(map[string]*routeCounter),
		messageTimeout:      300 * time.Second,
		healthCheckInterval: 30 * time.Second,
		logger:              logger,
	}
}

// Initialize registers chain adapters and bridge routes.
func (b *Broker) Initialize(adapters map[string]Adapter, routes []model.BridgeRoute) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.adapters = adapters
	for i := range routes {
		r := routes[i]
		routeID := model.RouteID(r.SourceChain, r.TargetChain)
		b.routes[routeID] = &r
		b.counters[routeID] = &routeCounter{}
	}
	b.logger.Printf("initialized message broker with %d adapters and %d routes", len(adapters), len(routes))
}

// Start launches min(5, len(adapters)) delivery workers plus the route
// health-check loop.
func (b *Broker) Start() error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bridge: broker already running")
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.running = true
	b.startedAt = time.Now()
	numWorkers := len(b.adapters)
	if numWorkers > 5 {
		numWorkers = 5
	}
	if numWorkers == 0 {
		numWorkers = 1
	}
	b.mu.Unlock()

	for i := 0; i < numWorkers; i++ {
		b.wg.Add(1)
		go b.worker(fmt.Sprintf("worker-%d", i))
	}
	b.wg.Add(1)
	go b.healthCheckLoop()

	b.logger.Printf("started message broker with %d workers", numWorkers)
	return nil
}

// Stop cancels all background work and waits for it to exit.
func (b *Broker) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	cancel := b.cancel
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	b.logger.Printf("stopped message broker")
}

// Send enqueues a new cross-chain message and returns its ID.
func (b *Broker) Send(msgType model.BridgeMessageType, sourceChain, targetChain string, payload []byte, priority int, timeout time.Duration) (string, error) {
	if sourceChain == targetChain {
		return "", fmt.Errorf("%w: %s", ErrSameChain, sourceChain)
	}

	routeID := model.RouteID(sourceChain, targetChain)

	b.mu.RLock()
	route, ok := b.routes[routeID]
	b.mu.RUnlock()
	if !ok || !route.Active {
		return "", fmt.Errorf("%w: %s", ErrNoRoute, routeID)
	}

	if timeout == 0 {
		timeout = b.messageTimeout
	}

	msg := &model.BridgeMessage{
		MessageID:     uuid.NewString(),
		SchemaVersion: model.SchemaVersion,
		Type:          msgType,
		SourceChain:   sourceChain,
		TargetChain:   targetChain,
		Payload:       payload,
		Priority:      priority,
		MaxRetries:    len(retryDelays),
		Status:        model.BridgeStatusPending,
		CreatedAt:     time.Now(),
		Deadline:      time.Now().Add(timeout),
	}

	if !b.queue.Enqueue(msg) {
		return "", ErrQueueFull
	}

	b.mu.Lock()
	b.active[msg.MessageID] = msg
	b.mu.Unlock()
	atomic.AddUint64(&b.stats.TotalMessages, 1)

	b.logger.Printf("queued message %s from %s to %s", msg.MessageID, sourceChain, targetChain)
	return msg.MessageID, nil
}

// Status returns the current delivery status for a message, if tracked.
func (b *Broker) Status(messageID string) (model.BridgeMessageStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.active[messageID]
	if !ok {
		return "", false
	}
	return msg.Status, true
}

// Snapshot returns broker-wide counters plus queue occupancy.
func (b *Broker) Snapshot() Stats {
	return Stats{
		TotalMessages:      atomic.LoadUint64(&b.stats.TotalMessages),
		SuccessfulMessages: atomic.LoadUint64(&b.stats.SuccessfulMessages),
		FailedMessages:     atomic.LoadUint64(&b.stats.FailedMessages),
		RetryAttempts:      atomic.LoadUint64(&b.stats.RetryAttempts),
		Timeouts:           atomic.LoadUint64(&b.stats.Timeouts),
	}
}

// Routes returns a snapshot of every registered route.
func (b *Broker) Routes() []model.BridgeRoute {
	b.mu.RLock()
	defer b.mu.RUnlock()

	routes := make([]model.BridgeRoute, 0, len(b.routes))
	for _, r := range b.routes {
		routes = append(routes, *r)
	}
	return routes
}

// RouteMetrics builds one model.BridgeMetrics sample per registered route
// from its accumulated delivery counters, for internal/bridgehealth to
// publish.
func (b *Broker) RouteMetrics() []model.BridgeMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var elapsedSeconds float64
	if !b.startedAt.IsZero() {
		elapsedSeconds = time.Since(b.startedAt).Seconds()
	}

	out := make([]model.BridgeMetrics, 0, len(b.routes))
	for routeID, route := range b.routes {
		counter, ok := b.counters[routeID]
		if !ok {
			continue
		}
		total, success, failed, avgLatencyMS := counter.snapshot()

		var errorRate float64
		if total > 0 {
			errorRate = float64(failed) / float64(total)
		}
		var throughput float64
		if elapsedSeconds >= 1 {
			throughput = float64(total) / elapsedSeconds
		}

		out = append(out, model.BridgeMetrics{
			RouteID:             routeID,
			TotalMessages:       total,
			SuccessfulMessages:  success,
			FailedMessages:      failed,
			AverageLatencyMS:    avgLatencyMS,
			ThroughputMsgPerSec: throughput,
			ErrorRate:           errorRate,
			HealthScore:         route.HealthScore,
			UptimePercentage:    route.HealthScore * 100,
			LastUpdated:         time.Now(),
		})
	}
	return out
}

func (b *Broker) worker(id string) {
	defer b.wg.Done()
	b.logger.Printf("started message worker %s", id)

	for {
		select {
		case <-b.ctx.Done():
			b.logger.Printf("stopped message worker %s", id)
			return
		default:
		}

		msg := b.queue.Dequeue(b.ctx, 1*time.Second)
		if msg == nil {
			continue
		}

		if b.isExpired(msg) {
			b.handleTimeout(msg)
			continue
		}

		start := time.Now()
		success := b.process(msg)
		if success && msg.Status != model.BridgeStatusConfirmed {
			// A retry is scheduled; the message is not complete yet.
			continue
		}
		latencyMS := float64(time.Since(start).Milliseconds())
		b.queue.MarkCompleted(msg.MessageID, success)

		if success {
			atomic.AddUint64(&b.stats.SuccessfulMessages, 1)
		} else {
			atomic.AddUint64(&b.stats.FailedMessages, 1)
		}

		b.mu.RLock()
		counter, ok := b.counters[model.RouteID(msg.SourceChain, msg.TargetChain)]
		b.mu.RUnlock()
		if ok {
			counter.record(success, latencyMS)
		}
	}
}

func (b *Broker) process(msg *model.BridgeMessage) bool {
	b.mu.RLock()
	adapter, ok := b.adapters[msg.TargetChain]
	b.mu.RUnlock()
	if !ok {
		b.logger.Printf("no adapter for target chain %s", msg.TargetChain)
		return false
	}

	msg.Status = model.BridgeStatusTransmitted

	ctx, cancel := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancel()

	sent, err := adapter.TransmitMessage(ctx, msg)
	if err != nil || !sent {
		if err != nil {
			b.logger.Printf("error transmitting message %s: %v", msg.MessageID, err)
		} else {
			b.logger.Printf("failed to transmit message %s", msg.MessageID)
		}
		return b.retry(msg)
	}

	confirmed, err := adapter.ConfirmDelivery(ctx, msg.MessageID, msg.TargetChain)
	if err != nil || !confirmed {
		b.logger.Printf("message %s transmitted but not confirmed", msg.MessageID)
		return b.retry(msg)
	}

	msg.Status = model.BridgeStatusConfirmed
	b.logger.Printf("message %s delivered successfully", msg.MessageID)
	return true
}

func (b *Broker) retry(msg *model.BridgeMessage) bool {
	if msg.RetryCount >= msg.MaxRetries {
		msg.Status = model.BridgeStatusFailed
		b.logger.Printf("message %s exceeded max retries", msg.MessageID)
		return false
	}

	delayIdx := msg.RetryCount
	if delayIdx >= len(retryDelays) {
		delayIdx = len(retryDelays) - 1
	}
	delay := retryDelays[delayIdx]

	msg.RetryCount++
	atomic.AddUint64(&b.stats.RetryAttempts, 1)
	b.logger.Printf("retrying message %s in %s (attempt %d)", msg.MessageID, delay, msg.RetryCount)

	b.wg.Add(1)
	go b.scheduleRetry(msg, delay)
	return true
}

func (b *Broker) scheduleRetry(msg *model.BridgeMessage, delay time.Duration) {
	defer b.wg.Done()
	select {
	case <-b.ctx.Done():
		return
	case <-time.After(delay):
	}

	b.mu.RLock()
	_, stillActive := b.active[msg.MessageID]
	b.mu.RUnlock()
	if !stillActive {
		return
	}
	b.queue.Enqueue(msg)
}

func (b *Broker) isExpired(msg *model.BridgeMessage) bool {
	return time.Now().After(msg.Deadline)
}

func (b *Broker) handleTimeout(msg *model.BridgeMessage) {
	msg.Status = model.BridgeStatusTimeout
	atomic.AddUint64(&b.stats.Timeouts, 1)
	b.logger.Printf("message %s timed out", msg.MessageID)

	b.mu.Lock()
	delete(b.active, msg.MessageID)
	b.mu.Unlock()
}

func (b *Broker) healthCheckLoop() {
	defer b.wg.Done()
	b.logger.Printf("started bridge health check loop")

	ticker := time.NewTicker(b.healthCheckInterval)
	defer ticker.Stop()

	b.checkRoutes()
	for {
		select {
		case <-b.ctx.Done():
			b.logger.Printf("stopped bridge health check loop")
			return
		case <-ticker.C:
			b.checkRoutes()
		}
	}
}

func (b *Broker) checkRoutes() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for routeID, route := range b.routes {
		if !route.Active {
			continue
		}
		adapter, ok := b.adapters[route.TargetChain]
		if !ok || !adapter.Operational() {
			route.Active = false
			route.HealthScore = 0
			b.logger.Printf("route %s marked inactive", routeID)
			continue
		}
		route.HealthScore = 0.95
		route.Active = true
	}
}
