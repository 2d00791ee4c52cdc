package bridgehealth

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

type fakeSource struct {
	routes  []model.BridgeRoute
	metrics []model.BridgeMetrics
}

func (f fakeSource) Routes() []model.BridgeRoute       { return f.routes }
func (f fakeSource) RouteMetrics() []model.BridgeMetrics { return f.metrics }

func TestCollectorObserveSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	c.Observe(model.BridgeMetrics{
		RouteID:          "chain-a_chain-b",
		TotalMessages:    10,
		SuccessfulMessages: 9,
		FailedMessages:   1,
		AverageLatencyMS: 120,
		ErrorRate:        0.1,
		HealthScore:      0.95,
		UptimePercentage: 95,
	})

	var m dto.Metric
	gauge, err := c.healthScore.GetMetricWithLabelValues("chain-a_chain-b")
	if err != nil {
		t.Fatalf("get gauge: %v", err)
	}
	if err := gauge.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetGauge().GetValue() != 0.95 {
		t.Fatalf("expected health score 0.95, got %v", m.GetGauge().GetValue())
	}
}

func TestCollectorCounterDeltasOnRepeatedObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	c.Observe(model.BridgeMetrics{RouteID: "a_b", TotalMessages: 5, SuccessfulMessages: 5})
	c.Observe(model.BridgeMetrics{RouteID: "a_b", TotalMessages: 8, SuccessfulMessages: 7, FailedMessages: 1})

	var m dto.Metric
	counter, err := c.totalMessages.GetMetricWithLabelValues("a_b")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if err := counter.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetCounter().GetValue() != 8 {
		t.Fatalf("expected cumulative total counter 8, got %v", m.GetCounter().GetValue())
	}
}

func TestMonitorSamplesOnStartAndTicks(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	src := fakeSource{metrics: []model.BridgeMetrics{{RouteID: "x_y", HealthScore: 0.5}}}
	mon := NewMonitor(Config{CheckInterval: 20 * time.Millisecond}, src, c, nil)

	if err := mon.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mon.Stop()

	time.Sleep(50 * time.Millisecond)

	var m dto.Metric
	gauge, err := c.healthScore.GetMetricWithLabelValues("x_y")
	if err != nil {
		t.Fatalf("get gauge: %v", err)
	}
	if err := gauge.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetGauge().GetValue() != 0.5 {
		t.Fatalf("expected health score 0.5, got %v", m.GetGauge().GetValue())
	}
}

func TestMonitorRejectsDoubleStart(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, _ := NewCollector(reg)
	mon := NewMonitor(DefaultConfig(), fakeSource{}, c, nil)

	if err := mon.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mon.Stop()

	if err := mon.Start(); err == nil {
		t.Fatal("expected error starting an already-running monitor")
	}
}
