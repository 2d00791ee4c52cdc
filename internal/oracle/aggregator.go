package oracle

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrNoAdapters is returned when the aggregator has no adapter for a type.
var ErrNoAdapters = errors.New("oracle: no adapters registered for type")

// DeviationThresholds maps an OracleDataType to its deviation_threshold
// (default 2% for prices, 5% for commodities, per §4.2).
var DeviationThresholds = map[model.OracleDataType]float64{
	model.OracleTypePrice:   0.02,
	model.OracleTypeWeather: 0.05,
	model.OracleTypeSports:  0.05,
	model.OracleTypeCustom:  0.05,
}

// Aggregator is C2: fans out a typed query to registered adapters in
// parallel, bounded by a per-adapter timeout and an overall deadline.
type Aggregator struct {
	adapters          map[model.OracleDataType][]Adapter
	perAdapterTimeout time.Duration
}

// NewAggregator builds an empty aggregator.
func NewAggregator(perAdapterTimeout time.Duration) *Aggregator {
	if perAdapterTimeout <= 0 {
		perAdapterTimeout = 5 * time.Second
	}
	return &Aggregator{adapters: make(map[model.OracleDataType][]Adapter), perAdapterTimeout: perAdapterTimeout}
}

// Register adds an adapter under every type it declares support for.
func (a *Aggregator) Register(ad Adapter) {
	for _, t := range ad.SupportedTypes() {
		a.adapters[t] = append(a.adapters[t], ad)
	}
}

type sample struct {
	point model.OracleDataPoint
}

// Query fans out to every adapter supporting query.Type, with a per-adapter
// timeout, gathering whatever returns within the overall deadline carried by
// ctx. It never returns an error solely because some adapters failed —
// per §7, oracle adapter errors are recovered locally by dropping the source.
func (a *Aggregator) Query(ctx context.Context, q model.OracleQuery) (model.OracleConsensus, error) {
	adapters := a.adapters[q.Type]
	if len(adapters) == 0 {
		return model.OracleConsensus{}, ErrNoAdapters
	}

	results := make([]sample, len(adapters))
	ok := make([]bool, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, ad := range adapters {
		i, ad := i, ad
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, a.perAdapterTimeout)
			defer cancel()
			dp, err := ad.GetData(callCtx, q)
			if err != nil {
				return nil // dropped source, not a fan-out failure
			}
			results[i] = sample{point: dp}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait() // errgroup cancellation on ctx deadline is expected, not fatal

	window := adapters[0].FreshnessWindow(q.Type)
	now := time.Now()
	var fresh []model.OracleDataPoint
	var reliabilities []float64
	for i, adapterOK := range ok {
		if !adapterOK {
			continue
		}
		if now.Sub(results[i].point.Timestamp) > window {
			continue
		}
		fresh = append(fresh, results[i].point)
		reliabilities = append(reliabilities, adapters[i].Reliability())
	}

	if len(fresh) == 0 {
		return model.OracleConsensus{Query: q, ConsensusAchieved: false}, nil
	}

	if isNumeric(q.Type) {
		return aggregateNumeric(q, fresh, reliabilities, window, now), nil
	}
	return aggregateCategorical(q, fresh, reliabilities), nil
}

func isNumeric(t model.OracleDataType) bool {
	return t == model.OracleTypePrice
}

func aggregateNumeric(q model.OracleQuery, points []model.OracleDataPoint, reliabilities []float64, window time.Duration, now time.Time) model.OracleConsensus {
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	avg := sum / float64(len(points))

	maxDeviation := 0.0
	if len(points) >= 2 && avg != 0 {
		for _, p := range points {
			d := math.Abs(p.Value-avg) / math.Abs(avg)
			if d > maxDeviation {
				maxDeviation = d
			}
		}
	}

	threshold, ok := DeviationThresholds[q.Type]
	if !ok {
		threshold = 0.05
	}
	consensusAchieved := len(points) < 2 || maxDeviation <= threshold

	weightSum := 0.0
	confSum := 0.0
	for i, p := range points {
		freshnessFactor := 1.0 - now.Sub(p.Timestamp).Seconds()/window.Seconds()
		if freshnessFactor < 0 {
			freshnessFactor = 0
		}
		w := reliabilities[i] * freshnessFactor
		weightSum += w
		confSum += w * p.Confidence
	}
	confidence := 0.0
	if weightSum > 0 {
		confidence = confSum / weightSum
	}

	value := avg
	if !consensusAchieved {
		value = median(points)
	}

	return model.OracleConsensus{
		Query:             q,
		Value:             value,
		Confidence:        confidence,
		ConsensusAchieved: consensusAchieved,
		MaxDeviation:      maxDeviation,
		Contributing:      points,
	}
}

func aggregateCategorical(q model.OracleQuery, points []model.OracleDataPoint, reliabilities []float64) model.OracleConsensus {
	counts := make(map[string]int)
	for _, p := range points {
		counts[p.StringValue]++
	}
	var best string
	bestCount := -1
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	confidence := float64(bestCount) / float64(len(points))
	return model.OracleConsensus{
		Query:             q,
		StringValue:       best,
		Confidence:        confidence,
		ConsensusAchieved: bestCount > len(points)/2,
		Contributing:      points,
	}
}

func median(points []model.OracleDataPoint) float64 {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
