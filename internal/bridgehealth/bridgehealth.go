// Package bridgehealth periodically samples cross-chain bridge route health
// and publishes it both as model.BridgeMetrics snapshots and as Prometheus
// gauges/counters, grounded on the teacher's
// pkg/consensus/health_monitor.go ConsensusHealthMonitor (ticker-driven
// polling loop, start/stop lifecycle, injected status source) generalized
// from a single CometBFT node's block height to per-route bridge metrics,
// and on luxfi-consensus's protocol/prism/early_term_traversal.go for the
// prometheus.Registerer + GaugeVec/CounterVec wiring convention.
package bridgehealth

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// RouteSource is the capability bridgehealth needs from internal/bridge's
// Broker, kept narrow so this package does not import bridge directly.
type RouteSource interface {
	Routes() []model.BridgeRoute
	RouteMetrics() []model.BridgeMetrics
}

const routeLabel = "route_id"

// Collector owns the Prometheus series published for every bridge route.
type Collector struct {
	healthScore *prometheus.GaugeVec
	latencyMS   *prometheus.GaugeVec
	errorRate   *prometheus.GaugeVec
	throughput  *prometheus.GaugeVec
	uptime      *prometheus.GaugeVec

	totalMessages      *prometheus.CounterVec
	successfulMessages *prometheus.CounterVec
	failedMessages     *prometheus.CounterVec

	mu   sync.Mutex
	seen map[string]cumulative // routeID -> last-seen cumulative totals, for counter deltas
}

type cumulative struct {
	total, success, failed uint64
}

// NewCollector registers the bridgehealth metric family with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	healthScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_health_score",
		Help:      "Current health score (0-1) of a cross-chain bridge route.",
	}, []string{routeLabel})
	latencyMS := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_latency_ms",
		Help:      "Exponentially-weighted average delivery latency for a bridge route.",
	}, []string{routeLabel})
	errorRate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_error_rate",
		Help:      "Fraction of delivery attempts that failed for a bridge route.",
	}, []string{routeLabel})
	throughput := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_throughput_msg_per_sec",
		Help:      "Observed message throughput for a bridge route.",
	}, []string{routeLabel})
	uptime := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_uptime_percentage",
		Help:      "Uptime percentage of a bridge route, reported as its current health score times 100.",
	}, []string{routeLabel})
	totalMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_messages_total",
		Help:      "Total messages attempted on a bridge route.",
	}, []string{routeLabel})
	successfulMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_messages_successful_total",
		Help:      "Total messages successfully delivered on a bridge route.",
	}, []string{routeLabel})
	failedMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustwrapper",
		Subsystem: "bridge",
		Name:      "route_messages_failed_total",
		Help:      "Total messages that failed delivery on a bridge route.",
	}, []string{routeLabel})

	for _, c := range []prometheus.Collector{healthScore, latencyMS, errorRate, throughput, uptime, totalMessages, successfulMessages, failedMessages} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register bridgehealth metric: %w", err)
		}
	}

	return &Collector{
		healthScore:        healthScore,
		latencyMS:          latencyMS,
		errorRate:          errorRate,
		throughput:         throughput,
		uptime:             uptime,
		totalMessages:      totalMessages,
		successfulMessages: successfulMessages,
		failedMessages:     failedMessages,
		seen:               make(map[string]cumulative),
	}, nil
}

// Observe updates every series for one model.BridgeMetrics sample. Counters
// advance by the delta against the last-seen cumulative total, since the
// source (internal/bridge's Broker) reports running totals, not per-tick
// increments.
func (c *Collector) Observe(m model.BridgeMetrics) {
	c.healthScore.WithLabelValues(m.RouteID).Set(m.HealthScore)
	c.latencyMS.WithLabelValues(m.RouteID).Set(m.AverageLatencyMS)
	c.errorRate.WithLabelValues(m.RouteID).Set(m.ErrorRate)
	c.throughput.WithLabelValues(m.RouteID).Set(m.ThroughputMsgPerSec)
	c.uptime.WithLabelValues(m.RouteID).Set(m.UptimePercentage)

	c.mu.Lock()
	prev := c.seen[m.RouteID]
	c.seen[m.RouteID] = cumulative{total: m.TotalMessages, success: m.SuccessfulMessages, failed: m.FailedMessages}
	c.mu.Unlock()

	if m.TotalMessages > prev.total {
		c.totalMessages.WithLabelValues(m.RouteID).Add(float64(m.TotalMessages - prev.total))
	}
	if m.SuccessfulMessages > prev.success {
		c.successfulMessages.WithLabelValues(m.RouteID).Add(float64(m.SuccessfulMessages - prev.success))
	}
	if m.FailedMessages > prev.failed {
		c.failedMessages.WithLabelValues(m.RouteID).Add(float64(m.FailedMessages - prev.failed))
	}
}

// Config tunes the monitor loop.
type Config struct {
	CheckInterval time.Duration
}

// DefaultConfig matches the teacher's DefaultHealthMonitorConfig cadence.
func DefaultConfig() Config {
	return Config{CheckInterval: 10 * time.Second}
}

// Monitor polls a RouteSource on a ticker and feeds every sample into a
// Collector, mirroring ConsensusHealthMonitor's Start/Stop/monitorLoop
// lifecycle.
type Monitor struct {
	mu sync.Mutex

	cfg       Config
	source    RouteSource
	collector *Collector
	logger    *log.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// NewMonitor builds a Monitor that samples source and publishes into
// collector every cfg.CheckInterval.
func NewMonitor(cfg Config, source RouteSource, collector *Collector, logger *log.Logger) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		cfg:       cfg,
		source:    source,
		collector: collector,
		logger:    logger,
	}
}

// Start begins the polling loop.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("bridgehealth: monitor already running")
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.running = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop()
	m.logger.Printf("[bridgehealth] started route monitor (interval %s)", m.cfg.CheckInterval)
	return nil
}

// Stop cancels the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Printf("[bridgehealth] stopped route monitor")
}

func (m *Monitor) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	for _, metrics := range m.source.RouteMetrics() {
		m.collector.Observe(metrics)
	}
}
