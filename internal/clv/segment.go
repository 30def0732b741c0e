package clv

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSegmentCount is the number of CLV tiers.
const DefaultSegmentCount = 4

// CLVResult is the scored output for one repeat customer.
type CLVResult struct {
	CustomerRFM
	PredictedPurchases    float64
	ExpectedAverageProfit float64
	ProbabilityAlive      float64
	CLV                   float64
	Segment               string
}

// SegmentSummary aggregates the customers of one tier.
type SegmentSummary struct {
	Label string
	Count int

	MinCLV float64
	MaxCLV float64

	Mean Metrics
	Sum  Metrics
}

// Metrics are the per-customer columns aggregated in a segment summary.
type Metrics struct {
	Recency               float64
	T                     float64
	Frequency             float64
	Monetary              float64
	PredictedPurchases    float64
	ExpectedAverageProfit float64
	CLV                   float64
}

// DefaultLabels returns count ordinal labels from lowest to highest tier,
// ending in "A": 4 gives D, C, B, A.
func DefaultLabels(count int) []string {
	labels := make([]string, count)
	for i := range labels {
		labels[i] = string(rune('A' + count - 1 - i))
	}
	return labels
}

// Segment assigns equal-population tiers by CLV rank. labels run from lowest to
// highest tier; nil uses DefaultLabels. The result is sorted by CLV descending.
func Segment(results []CLVResult, count int, labels []string) ([]CLVResult, error) {
	if count < 1 {
		return nil, &PreconditionError{Stage: "segment", Reason: fmt.Sprintf("segment count must be positive, got %d", count)}
	}
	if labels == nil {
		if count > 26 {
			return nil, &PreconditionError{Stage: "segment", Reason: "more than 26 segments need explicit labels"}
		}
		labels = DefaultLabels(count)
	}
	if len(labels) != count {
		return nil, &PreconditionError{Stage: "segment", Reason: fmt.Sprintf("%d labels for %d segments", len(labels), count)}
	}

	distinct := make(map[float64]struct{}, len(results))
	for _, r := range results {
		distinct[r.CLV] = struct{}{}
	}
	if len(distinct) < count {
		return nil, &InsufficientDataError{Distinct: len(distinct), Requested: count}
	}

	out := append([]CLVResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CLV != out[j].CLV {
			return out[i].CLV < out[j].CLV
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	n := len(out)
	for i := range out {
		out[i].Segment = labels[i*count/n]
	}

	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// QuantileEdges returns the CLV values at the count-1 inner tier boundaries.
func QuantileEdges(results []CLVResult, count int) []float64 {
	if len(results) == 0 || count < 2 {
		return nil
	}
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.CLV
	}
	sort.Float64s(values)

	edges := make([]float64, count-1)
	for i := range edges {
		edges[i] = stat.Quantile(float64(i+1)/float64(count), stat.Empirical, values, nil)
	}
	return edges
}

// SummarizeSegments returns count, mean and sum per segment, highest mean CLV first.
func SummarizeSegments(results []CLVResult) []SegmentSummary {
	groups := make(map[string][]CLVResult)
	var order []string
	for _, r := range results {
		if _, ok := groups[r.Segment]; !ok {
			order = append(order, r.Segment)
		}
		groups[r.Segment] = append(groups[r.Segment], r)
	}

	out := make([]SegmentSummary, 0, len(order))
	for _, label := range order {
		members := groups[label]
		cols := columns(members)
		s := SegmentSummary{
			Label:  label,
			Count:  len(members),
			MinCLV: floats.Min(cols.clv),
			MaxCLV: floats.Max(cols.clv),
		}
		s.Sum = Metrics{
			Recency:               floats.Sum(cols.recency),
			T:                     floats.Sum(cols.t),
			Frequency:             floats.Sum(cols.frequency),
			Monetary:              floats.Sum(cols.monetary),
			PredictedPurchases:    floats.Sum(cols.predicted),
			ExpectedAverageProfit: floats.Sum(cols.profit),
			CLV:                   floats.Sum(cols.clv),
		}
		s.Mean = Metrics{
			Recency:               stat.Mean(cols.recency, nil),
			T:                     stat.Mean(cols.t, nil),
			Frequency:             stat.Mean(cols.frequency, nil),
			Monetary:              stat.Mean(cols.monetary, nil),
			PredictedPurchases:    stat.Mean(cols.predicted, nil),
			ExpectedAverageProfit: stat.Mean(cols.profit, nil),
			CLV:                   stat.Mean(cols.clv, nil),
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean.CLV > out[j].Mean.CLV })
	return out
}

type resultColumns struct {
	recency, t, frequency, monetary, predicted, profit, clv []float64
}

func columns(rs []CLVResult) resultColumns {
	var c resultColumns
	for _, r := range rs {
		c.recency = append(c.recency, r.Recency)
		c.t = append(c.t, r.T)
		c.frequency = append(c.frequency, r.Frequency)
		c.monetary = append(c.monetary, r.Monetary)
		c.predicted = append(c.predicted, r.PredictedPurchases)
		c.profit = append(c.profit, r.ExpectedAverageProfit)
		c.clv = append(c.clv, r.CLV)
	}
	return c
}
