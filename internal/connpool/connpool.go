// Package connpool manages connections to chainops.ChainOps adapters with
// health monitoring, retry-with-backoff, and automatic reconnection,
// grounded on the connection manager's add/remove/health-loop shape and
// the teacher's ConsensusHealthMonitor ticker-driven monitor loop.
package connpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/chainops"
)

// ErrUnknownChain is returned for operations on a chain type the pool does
// not hold an adapter for.
var ErrUnknownChain = errors.New("connpool: unknown chain")

// Health mirrors the connection manager's per-chain health record.
type Health struct {
	ChainType             string
	Connected             bool
	LastSuccessfulRequest time.Time
	ConsecutiveFailures   int
	AvgResponseMS         float64
	LastError             string
}

// Config mirrors the connection manager's tunables, renamed to match §6's
// Configuration table field names.
type Config struct {
	HealthCheckIntervalS int
	MaxRetryAttempts     int
	ConnectionTimeoutS   int
}

// DefaultConfig matches the original's defaults (30s/3/10s).
func DefaultConfig() Config {
	return Config{HealthCheckIntervalS: 30, MaxRetryAttempts: 3, ConnectionTimeoutS: 10}
}

// Manager pools ChainOps adapters and tracks their health.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	logger   *log.Logger
	adapters map[string]chainops.ChainOps
	health   map[string]*Health

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// New builds a Manager. A nil logger falls back to a default one tagged
// "connpool".
func New(cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		adapters: make(map[string]chainops.ChainOps),
		health:   make(map[string]*Health),
	}
}

// Add registers an adapter and attempts an initial connection with retry.
// It returns whatever the final connection attempt returned, even on
// failure — the adapter stays in the pool either way, per the original's
// "added but connection failed" behavior.
func (m *Manager) Add(ctx context.Context, a chainops.ChainOps) error {
	chainType := a.ChainType()

	m.mu.Lock()
	m.adapters[chainType] = a
	m.health[chainType] = &Health{ChainType: chainType}
	m.mu.Unlock()

	err := m.connectWithRetry(ctx, a)
	if err != nil {
		m.logger.Printf("added %s adapter but connection failed: %v", chainType, err)
	} else {
		m.logger.Printf("successfully added %s adapter", chainType)
	}
	return err
}

// Remove disconnects and removes the adapter for chainType.
func (m *Manager) Remove(ctx context.Context, chainType string) error {
	m.mu.Lock()
	a, ok := m.adapters[chainType]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownChain
	}
	delete(m.adapters, chainType)
	delete(m.health, chainType)
	m.mu.Unlock()

	return a.Disconnect(ctx)
}

// HealthyAdapters returns adapters connected with fewer than MaxRetryAttempts
// consecutive failures.
func (m *Manager) HealthyAdapters() []chainops.ChainOps {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]chainops.ChainOps, 0, len(m.adapters))
	for chainType, h := range m.health {
		if h.Connected && h.ConsecutiveFailures < m.cfg.MaxRetryAttempts {
			out = append(out, m.adapters[chainType])
		}
	}
	return out
}

// Get returns the adapter for chainType if it is currently healthy.
func (m *Manager) Get(chainType string) (chainops.ChainOps, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.adapters[chainType]
	if !ok {
		return nil, false
	}
	h := m.health[chainType]
	if h.Connected && h.ConsecutiveFailures < m.cfg.MaxRetryAttempts {
		return a, true
	}
	return nil, false
}

// Status returns a snapshot of every tracked chain's health.
func (m *Manager) Status() map[string]Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Health, len(m.health))
	for chainType, h := range m.health {
		out[chainType] = *h
	}
	return out
}

// Start begins the background health-check loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connpool: health monitoring already running")
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	m.running = true
	m.mu.Unlock()

	m.logger.Printf("started connection health monitoring (interval=%ds)", m.cfg.HealthCheckIntervalS)
	go m.monitorLoop()
	return nil
}

// Stop halts the health-check loop and waits for it to exit.
func (m *Manager) Stop() {
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
	m.logger.Printf("stopped connection health monitoring")
}

// DisconnectAll stops monitoring and disconnects every pooled adapter.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for chainType, a := range m.adapters {
		if err := a.Disconnect(ctx); err != nil {
			m.logger.Printf("error disconnecting from %s: %v", chainType, err)
		}
	}
	m.adapters = make(map[string]chainops.ChainOps)
	m.health = make(map[string]*Health)
}

func (m *Manager) connectWithRetry(ctx context.Context, a chainops.ChainOps) error {
	chainType := a.ChainType()
	var lastErr error

	for attempt := 0; attempt < m.cfg.MaxRetryAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.ConnectionTimeoutS)*time.Second)
		err := a.Connect(cctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			h := m.health[chainType]
			h.Connected = true
			h.ConsecutiveFailures = 0
			h.LastSuccessfulRequest = time.Now()
			h.LastError = ""
			m.mu.Unlock()
			return nil
		}

		lastErr = err
		m.mu.Lock()
		h := m.health[chainType]
		h.ConsecutiveFailures++
		h.LastError = err.Error()
		m.mu.Unlock()

		m.logger.Printf("connection error for %s: %v (attempt %d/%d)", chainType, err, attempt+1, m.cfg.MaxRetryAttempts)

		if attempt < m.cfg.MaxRetryAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt)) * time.Second):
			}
		}
	}

	m.mu.Lock()
	m.health[chainType].Connected = false
	m.mu.Unlock()

	return lastErr
}

func (m *Manager) monitorLoop() {
	defer close(m.done)

	ticker := time.NewTicker(time.Duration(m.cfg.HealthCheckIntervalS) * time.Second)
	defer ticker.Stop()

	m.checkAll()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkAll()
		}
	}
}

func (m *Manager) checkAll() {
	m.mu.RLock()
	adapters := make(map[string]chainops.ChainOps, len(m.adapters))
	for k, v := range m.adapters {
		adapters[k] = v
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for chainType, a := range adapters {
		wg.Add(1)
		go func(chainType string, a chainops.ChainOps) {
			defer wg.Done()
			m.checkOne(chainType, a)
		}(chainType, a)
	}
	wg.Wait()
}

func (m *Manager) checkOne(chainType string, a chainops.ChainOps) {
	cctx, cancel := context.WithTimeout(m.ctx, time.Duration(m.cfg.ConnectionTimeoutS)*time.Second)
	defer cancel()

	start := time.Now()
	_, err := a.GetChainMetrics(cctx)
	responseMS := float64(time.Since(start).Microseconds()) / 1000.0

	m.mu.Lock()
	h := m.health[chainType]
	if err == nil {
		h.Connected = true
		h.ConsecutiveFailures = 0
		h.LastSuccessfulRequest = time.Now()
		h.AvgResponseMS = h.AvgResponseMS*0.9 + responseMS*0.1
		h.LastError = ""
		m.mu.Unlock()
		return
	}

	h.ConsecutiveFailures++
	h.LastError = err.Error()
	needsReconnect := h.ConsecutiveFailures >= m.cfg.MaxRetryAttempts
	if needsReconnect {
		h.Connected = false
	}
	m.mu.Unlock()

	if needsReconnect {
		m.logger.Printf("attempting to reconnect to %s after %d failures", chainType, h.ConsecutiveFailures)
		_ = m.connectWithRetry(m.ctx, a)
	}
}
