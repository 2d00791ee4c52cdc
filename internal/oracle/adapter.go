// Package oracle implements the oracle adapter (C1) and aggregator (C2).
// Adapter shapes are grounded on chainlink_adapter.py and band_adapter.py:
// a price-feed adapter reporting source confidence, plus a generic mock
// adapter for weather/sports/custom query types.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

var (
	// ErrNotConnected is returned by get_data when the adapter has not connected.
	ErrNotConnected = errors.New("oracle: adapter not connected")
	// ErrUnsupportedType is returned for a query type the adapter does not serve.
	ErrUnsupportedType = errors.New("oracle: unsupported data type")
)

// Health mirrors the contract's health() → {status, success_rate, avg_response_ms}.
type Health struct {
	Connected      bool
	SuccessRate    float64
	AvgResponseMS  float64
	TotalQueries   uint64
	FailedQueries  uint64
}

// Adapter is C1's contract. Implementations must not retry internally —
// retry policy belongs to the aggregator (C2).
type Adapter interface {
	ID() string
	SupportedTypes() []model.OracleDataType
	FreshnessWindow(t model.OracleDataType) time.Duration
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	GetData(ctx context.Context, q model.OracleQuery) (model.OracleDataPoint, error)
	GetLatest(t model.OracleDataType) (model.OracleDataPoint, bool)
	Health() Health
	// Reliability is this adapter's static weight contribution to C2's
	// aggregated confidence (adapter.reliability × freshness_factor).
	Reliability() float64
}

type stats struct {
	total, successful, failed uint64
	avgResponseMS             float64
}

func (s *stats) record(d time.Duration, ok bool) {
	s.total++
	if ok {
		s.successful++
	} else {
		s.failed++
	}
	ms := float64(d.Microseconds()) / 1000.0
	s.avgResponseMS = (s.avgResponseMS*float64(s.total-1) + ms) / float64(s.total)
}

func (s *stats) health(connected bool) Health {
	rate := 0.0
	if s.total > 0 {
		rate = float64(s.successful) / float64(s.total)
	}
	return Health{Connected: connected, SuccessRate: rate, AvgResponseMS: s.avgResponseMS, TotalQueries: s.total, FailedQueries: s.failed}
}

// PriceOracleAdapter reports Chainlink-shaped price feeds with confidence
// 0.95, grounded on ChainlinkAdapter._get_price_feed's mock-data shape.
type PriceOracleAdapter struct {
	id          string
	reliability float64
	basePrices  map[string]float64
	freshness   time.Duration

	connected bool
	latest    map[model.OracleDataType]model.OracleDataPoint
	st        stats
	rng       *rand.Rand
}

// NewPriceOracleAdapter builds a price feed adapter seeded with base prices
// per trading pair (query parameter "pair").
func NewPriceOracleAdapter(id string, basePrices map[string]float64, seed int64) *PriceOracleAdapter {
	return &PriceOracleAdapter{
		id:          id,
		reliability: 1.0,
		basePrices:  basePrices,
		freshness:   300 * time.Second,
		latest:      make(map[model.OracleDataType]model.OracleDataPoint),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (p *PriceOracleAdapter) ID() string { return p.id }

func (p *PriceOracleAdapter) SupportedTypes() []model.OracleDataType {
	return []model.OracleDataType{model.OracleTypePrice}
}

func (p *PriceOracleAdapter) FreshnessWindow(model.OracleDataType) time.Duration { return p.freshness }

func (p *PriceOracleAdapter) Connect(ctx context.Context) error    { p.connected = true; return nil }
func (p *PriceOracleAdapter) Disconnect(ctx context.Context) error { p.connected = false; return nil }
func (p *PriceOracleAdapter) Reliability() float64                 { return p.reliability }
func (p *PriceOracleAdapter) Health() Health                       { return p.st.health(p.connected) }

func (p *PriceOracleAdapter) GetLatest(t model.OracleDataType) (model.OracleDataPoint, bool) {
	dp, ok := p.latest[t]
	return dp, ok
}

func (p *PriceOracleAdapter) GetData(ctx context.Context, q model.OracleQuery) (model.OracleDataPoint, error) {
	start := time.Now()
	if !p.connected {
		p.st.record(time.Since(start), false)
		return model.OracleDataPoint{}, ErrNotConnected
	}
	if q.Type != model.OracleTypePrice {
		p.st.record(time.Since(start), false)
		return model.OracleDataPoint{}, fmt.Errorf("%w: %s", ErrUnsupportedType, q.Type)
	}

	pair, _ := q.Parameters["pair"].(string)
	if pair == "" {
		pair = "ETH/USD"
	}
	base, ok := p.basePrices[pair]
	if !ok {
		base = 100.00
	}
	variation := (p.rng.Float64()*2 - 1) * 0.02 // +/- 2%
	price := base * (1 + variation)

	dp := model.OracleDataPoint{
		OracleID:      p.id,
		Type:          model.OracleTypePrice,
		Value:         math.Round(price*100) / 100,
		Timestamp:     time.Now(),
		Confidence:    0.95,
		SourceAddress: "0x" + p.id,
		Metadata:      map[string]interface{}{"pair": pair},
	}
	p.latest[model.OracleTypePrice] = dp
	p.st.record(time.Since(start), true)
	return dp, nil
}

// MockDataAdapter serves weather/sports/custom query types with the 0.80
// default confidence the adapter contract specifies for sources that don't
// provide their own.
type MockDataAdapter struct {
	id          string
	types       []model.OracleDataType
	reliability float64
	freshness   time.Duration

	connected bool
	latest    map[model.OracleDataType]model.OracleDataPoint
	st        stats
	rng       *rand.Rand
}

// NewMockDataAdapter builds an adapter serving the given data types.
func NewMockDataAdapter(id string, types []model.OracleDataType, seed int64) *MockDataAdapter {
	return &MockDataAdapter{
		id:          id,
		types:       types,
		reliability: 0.9,
		freshness:   600 * time.Second,
		latest:      make(map[model.OracleDataType]model.OracleDataPoint),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (m *MockDataAdapter) ID() string                                      { return m.id }
func (m *MockDataAdapter) SupportedTypes() []model.OracleDataType          { return m.types }
func (m *MockDataAdapter) FreshnessWindow(model.OracleDataType) time.Duration { return m.freshness }
func (m *MockDataAdapter) Connect(ctx context.Context) error               { m.connected = true; return nil }
func (m *MockDataAdapter) Disconnect(ctx context.Context) error            { m.connected = false; return nil }
func (m *MockDataAdapter) Reliability() float64                           { return m.reliability }
func (m *MockDataAdapter) Health() Health                                 { return m.st.health(m.connected) }

func (m *MockDataAdapter) GetLatest(t model.OracleDataType) (model.OracleDataPoint, bool) {
	dp, ok := m.latest[t]
	return dp, ok
}

func (m *MockDataAdapter) supports(t model.OracleDataType) bool {
	for _, s := range m.types {
		if s == t {
			return true
		}
	}
	return false
}

func (m *MockDataAdapter) GetData(ctx context.Context, q model.OracleQuery) (model.OracleDataPoint, error) {
	start := time.Now()
	if !m.connected {
		m.st.record(time.Since(start), false)
		return model.OracleDataPoint{}, ErrNotConnected
	}
	if !m.supports(q.Type) {
		m.st.record(time.Since(start), false)
		return model.OracleDataPoint{}, fmt.Errorf("%w: %s", ErrUnsupportedType, q.Type)
	}

	dp := model.OracleDataPoint{
		OracleID:      m.id,
		Type:          q.Type,
		Value:         m.rng.Float64() * 100,
		Timestamp:     time.Now(),
		Confidence:    0.80,
		SourceAddress: "mock://" + m.id,
	}
	m.latest[q.Type] = dp
	m.st.record(time.Since(start), true)
	return dp, nil
}
