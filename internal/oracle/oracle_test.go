package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func TestAggregator_ConsensusWithinThreshold(t *testing.T) {
	a := NewAggregator(time.Second)
	p1 := NewPriceOracleAdapter("p1", map[string]float64{"ETH/USD": 2500}, 1)
	p2 := NewPriceOracleAdapter("p2", map[string]float64{"ETH/USD": 2500}, 2)
	p1.Connect(context.Background())
	p2.Connect(context.Background())
	a.Register(p1)
	a.Register(p2)

	q := model.OracleQuery{QueryID: "q1", Type: model.OracleTypePrice, Parameters: map[string]interface{}{"pair": "ETH/USD"}}
	res, err := a.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Contributing) != 2 {
		t.Fatalf("expected 2 contributing points, got %d", len(res.Contributing))
	}
	if res.MaxDeviation > 0.05 {
		t.Fatalf("expected small deviation for same base price, got %f", res.MaxDeviation)
	}
}

func TestAggregator_NoAdapters(t *testing.T) {
	a := NewAggregator(time.Second)
	_, err := a.Query(context.Background(), model.OracleQuery{Type: model.OracleTypeWeather})
	if err != ErrNoAdapters {
		t.Fatalf("expected ErrNoAdapters, got %v", err)
	}
}

func TestAggregator_StaleDataDropped(t *testing.T) {
	a := NewAggregator(time.Second)
	p := NewPriceOracleAdapter("p1", map[string]float64{"ETH/USD": 2500}, 1)
	p.freshness = 1 * time.Nanosecond
	p.Connect(context.Background())
	a.Register(p)

	res, err := a.Query(context.Background(), model.OracleQuery{Type: model.OracleTypePrice, Parameters: map[string]interface{}{"pair": "ETH/USD"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ConsensusAchieved {
		t.Fatalf("expected consensus to fail when all data is stale")
	}
}

func TestMockDataAdapter_UnsupportedType(t *testing.T) {
	m := NewMockDataAdapter("m1", []model.OracleDataType{model.OracleTypeWeather}, 1)
	m.Connect(context.Background())
	_, err := m.GetData(context.Background(), model.OracleQuery{Type: model.OracleTypeSports})
	if err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestMockDataAdapter_NotConnected(t *testing.T) {
	m := NewMockDataAdapter("m1", []model.OracleDataType{model.OracleTypeWeather}, 1)
	_, err := m.GetData(context.Background(), model.OracleQuery{Type: model.OracleTypeWeather})
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
