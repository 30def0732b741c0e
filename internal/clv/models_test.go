package clv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTiming(t *testing.T) {
	rfm := simulateRFM(t, 300, 3)

	m, err := FitTiming(rfm, DefaultTimingPenalizer, FitSettings{})
	require.NoError(t, err)
	for i, p := range m.Params() {
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0), "param %d not finite", i)
		assert.Greater(t, p, 0.0, "param %d not positive", i)
	}
	assert.False(t, math.IsNaN(m.LogLikelihood))

	again, err := FitTiming(rfm, DefaultTimingPenalizer, FitSettings{})
	require.NoError(t, err)
	for i, p := range m.Params() {
		assert.InEpsilon(t, p, again.Params()[i], 1e-6)
	}
}

func TestFitTimingEmpty(t *testing.T) {
	_, err := FitTiming(nil, 0.001, FitSettings{})
	var empty *EmptyDatasetError
	require.ErrorAs(t, err, &empty)
}

func TestFitTimingEvaluationBudget(t *testing.T) {
	rfm := simulateRFM(t, 100, 5)
	_, err := FitTiming(rfm, DefaultTimingPenalizer, FitSettings{MaxEvaluations: 5})
	var fitErr *ModelFitError
	require.ErrorAs(t, err, &fitErr)
}

func testTiming() *TimingModel {
	return &TimingModel{R: 0.5, Alpha: 2, A: 1.6, B: 3.2}
}

func TestExpectedPurchasesNewCustomerMatchesPopulation(t *testing.T) {
	m := testTiming()
	for _, horizon := range []float64{1, 4, 8, 20} {
		assert.InDelta(t, m.ExpectedPurchases(horizon), m.ExpectedPurchasesFor(horizon, 0, 0, 0), 1e-9)
	}
}

func TestExpectedPurchasesForZeroFrequency(t *testing.T) {
	m := testTiming()
	v := m.ExpectedPurchasesFor(4, 0, 0, 10)
	assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	assert.Greater(t, v, 0.0)
}

func TestExpectedPurchasesMonotoneInHorizon(t *testing.T) {
	m := testTiming()
	assert.Equal(t, 0.0, m.ExpectedPurchasesFor(0, 5, 10, 20))
	prev := 0.0
	for horizon := 1.0; horizon <= 52; horizon++ {
		v := m.ExpectedPurchasesFor(horizon, 5, 10, 20)
		assert.Greater(t, v, prev, "horizon %v", horizon)
		prev = v
	}
}

func TestRecentCustomersExpectMore(t *testing.T) {
	m := testTiming()
	recent := m.ExpectedPurchasesFor(10, 6, 19, 20)
	stale := m.ExpectedPurchasesFor(10, 6, 5, 20)
	assert.Greater(t, recent, stale)
	assert.Greater(t, m.ProbabilityAlive(6, 19, 20), m.ProbabilityAlive(6, 5, 20))
	assert.Equal(t, 1.0, m.ProbabilityAlive(0, 0, 20))
}

func TestProbabilityAlive(t *testing.T) {
	m := testTiming()
	// 1 / (1 + 1.6/(3.2+2-1) * ((2+20)/(2+10))^(0.5+2))
	want := 1 / (1 + 1.6/4.2*math.Pow(22.0/12.0, 2.5))
	assert.InDelta(t, want, m.ProbabilityAlive(2, 10, 20), 1e-12)
	assert.InDelta(t, 1/(1+1.6/4.2), m.ProbabilityAlive(2, 20, 20), 1e-12)
}

func TestProbabilityOfPurchases(t *testing.T) {
	m := testTiming()
	const horizon = 8.0
	var total, mean float64
	for n := 0; n <= 200; n++ {
		p := m.ProbabilityOfPurchases(n, horizon)
		require.GreaterOrEqual(t, p, 0.0, "n=%d", n)
		total += p
		mean += float64(n) * p
	}
	assert.InDelta(t, 1, total, 1e-6)
	assert.InDelta(t, m.ExpectedPurchases(horizon), mean, 1e-6)
}

func TestFrequencyRecencyMatrix(t *testing.T) {
	m := testTiming()
	grid := m.FrequencyRecencyMatrix(1, 5, 10, 10)
	require.Len(t, grid, 6)
	require.Len(t, grid[0], 11)
	// More recent activity means more expected purchases at a given frequency.
	assert.Greater(t, grid[5][10], grid[5][1])
}

func TestPeriodTransactions(t *testing.T) {
	rfm := simulateRFM(t, 100, 9)
	counts := PeriodTransactions(testTiming(), rfm, 2, 6)
	require.Len(t, counts, 5)
	observed := 0
	for i, c := range counts {
		assert.Equal(t, i+2, c.Frequency)
		assert.GreaterOrEqual(t, c.Expected, 0.0)
		observed += c.Observed
	}
	assert.LessOrEqual(t, observed, len(rfm))
}

func TestPeriodTransactionsConditionsOnMinimum(t *testing.T) {
	m := testTiming()
	rfm := []CustomerRFM{
		{CustomerID: "a", Frequency: 2, Recency: 4, T: 10},
		{CustomerID: "b", Frequency: 3, Recency: 15, T: 20},
	}

	counts := PeriodTransactions(m, rfm, 2, 300)
	var total float64
	for _, c := range counts {
		total += c.Expected
	}
	// Every customer has at least two transactions, so the expectation
	// over k >= 2 accounts for the whole population.
	assert.InEpsilon(t, float64(len(rfm)), total, 1e-3)
	assert.Equal(t, 1, counts[0].Observed)
	assert.Equal(t, 1, counts[1].Observed)

	var want float64
	for _, c := range rfm {
		reach := 1 - m.ProbabilityOfPurchases(0, c.T) - m.ProbabilityOfPurchases(1, c.T)
		want += m.ProbabilityOfPurchases(2, c.T) / reach
	}
	assert.InDelta(t, want, counts[0].Expected, 1e-12)

	assert.Nil(t, PeriodTransactions(m, rfm, 5, 4))
}

func TestFitMonetary(t *testing.T) {
	rfm := simulateRFM(t, 300, 3)
	m, err := FitMonetary(rfm, DefaultMonetaryPenalizer, FitSettings{})
	require.NoError(t, err)
	for i, p := range m.Params() {
		assert.Greater(t, p, 0.0, "param %d", i)
		assert.False(t, math.IsInf(p, 0), "param %d", i)
	}

	again, err := FitMonetary(rfm, DefaultMonetaryPenalizer, FitSettings{})
	require.NoError(t, err)
	for i, p := range m.Params() {
		assert.InEpsilon(t, p, again.Params()[i], 1e-6)
	}
}

func TestFitMonetaryRejectsNonRepeatCustomers(t *testing.T) {
	rfm := []CustomerRFM{
		{CustomerID: "a", Frequency: 3, Recency: 2, T: 5, Monetary: 10},
		{CustomerID: "b", Frequency: 1, Recency: 0, T: 5, Monetary: 12},
	}
	_, err := FitMonetary(rfm, DefaultMonetaryPenalizer, FitSettings{})
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
}

func TestFitMonetaryRejectsNonPositiveSpend(t *testing.T) {
	rfm := []CustomerRFM{{CustomerID: "a", Frequency: 3, Recency: 2, T: 5, Monetary: 0}}
	_, err := FitMonetary(rfm, DefaultMonetaryPenalizer, FitSettings{})
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
}

func TestExpectedAverageValueShrinks(t *testing.T) {
	m := &MonetaryModel{P: 6, Q: 4, V: 15}
	mean := m.PopulationMean()
	assert.InDelta(t, 30, mean, 1e-12)

	low := m.ExpectedAverageValue(2, 80)
	high := m.ExpectedAverageValue(40, 80)
	assert.Less(t, low, 80.0)
	assert.Greater(t, low, mean)
	assert.Greater(t, high, low, "more transactions should trust the observed average more")
	assert.Less(t, math.Abs(high-80), math.Abs(low-80))
}

func TestExpectedAverageValueWithoutPopulationMean(t *testing.T) {
	m := &MonetaryModel{P: 2, Q: 0.8, V: 3}
	assert.True(t, math.IsNaN(m.PopulationMean()))
	assert.Equal(t, 42.0, m.ExpectedAverageValue(3, 42))
}
