package clv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
)

// DefaultTimingPenalizer is the L2 coefficient for the purchase-timing fit.
const DefaultTimingPenalizer = 0.001

// TimingModel is a fitted BG/NBD model. Purchase rates follow Gamma(R, Alpha)
// and dropout probabilities follow Beta(A, B) across customers.
type TimingModel struct {
	R         float64
	Alpha     float64
	A         float64
	B         float64
	Penalizer float64

	// LogLikelihood is the mean per-customer log-likelihood at the optimum.
	LogLikelihood float64
	Evaluations   int
}

// FitTiming estimates the BG/NBD parameters by penalized maximum likelihood.
func FitTiming(rfm []CustomerRFM, penalizer float64, settings FitSettings) (*TimingModel, error) {
	if len(rfm) == 0 {
		return nil, &EmptyDatasetError{Stage: "timing fit"}
	}
	for _, c := range rfm {
		if c.Frequency < 0 || c.Recency < 0 || c.T <= 0 || c.Recency > c.T {
			return nil, &PreconditionError{
				Stage:  "timing fit",
				Reason: "customer " + c.CustomerID + " needs frequency >= 0 and 0 <= recency <= T with T > 0",
			}
		}
	}

	n := float64(len(rfm))
	objective := func(p []float64) float64 {
		var ll float64
		for _, c := range rfm {
			ll += bgnbdLogLikelihood(p[0], p[1], p[2], p[3], c.Frequency, c.Recency, c.T)
		}
		return -ll/n + l2(penalizer, p)
	}

	res, err := minimizeLog("purchase-timing", 4, objective, settings)
	if err != nil {
		return nil, err
	}

	m := &TimingModel{
		R:           res.params[0],
		Alpha:       res.params[1],
		A:           res.params[2],
		B:           res.params[3],
		Penalizer:   penalizer,
		Evaluations: res.evaluations,
	}
	m.LogLikelihood = -(res.objective - l2(penalizer, res.params))
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// check rejects parameters at which the conditional expectation is undefined.
func (m *TimingModel) check() error {
	for i, p := range m.Params() {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return &ModelFitError{Model: "purchase-timing", Status: fmt.Sprintf("non-positive parameter %d (%g)", i, p)}
		}
	}
	if math.Abs(m.A-1) < 1e-12 {
		return &ModelFitError{Model: "purchase-timing", Status: "a = 1 leaves expected purchases undefined"}
	}
	return nil
}

// bgnbdLogLikelihood is the individual log-likelihood of (x, tx, T).
func bgnbdLogLikelihood(r, alpha, a, b, x, tx, T float64) float64 {
	a1 := lgamma(r+x) - lgamma(r) + r*math.Log(alpha)
	a2 := lgamma(a+b) + lgamma(b+x) - lgamma(b) - lgamma(a+b+x)
	a3 := -(r + x) * math.Log(alpha+T)
	if x <= 0 {
		return a1 + a2 + a3
	}
	a4 := math.Log(a) - math.Log(b+x-1) - (r+x)*math.Log(alpha+tx)
	return a1 + a2 + logAddExp(a3, a4)
}

// Params returns the parameters in fit order.
func (m *TimingModel) Params() []float64 {
	return []float64{m.R, m.Alpha, m.A, m.B}
}

// ExpectedPurchasesFor returns the expected number of purchases in the next t
// periods for a customer with the given history.
func (m *TimingModel) ExpectedPurchasesFor(t, frequency, recency, T float64) float64 {
	if t <= 0 {
		return 0
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	x := frequency

	first := (a + b + x - 1) / (a - 1)
	hyp := mathext.Hypergeo(r+x, b+x, a+b+x-1, t/(alpha+T+t))
	second := 1 - hyp*math.Pow((alpha+T)/(alpha+t+T), r+x)

	den := 1.0
	if x > 0 {
		den += a / (b + x - 1) * math.Pow((alpha+T)/(alpha+recency), r+x)
	}
	return first * second / den
}

// ExpectedPurchases returns E[X(t)] for a customer drawn from the population.
func (m *TimingModel) ExpectedPurchases(t float64) float64 {
	if t <= 0 {
		return 0
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	hyp := mathext.Hypergeo(r, b, a+b-1, t/(alpha+t))
	return (a + b - 1) / (a - 1) * (1 - math.Pow(alpha/(alpha+t), r)*hyp)
}

// ProbabilityAlive returns the probability that a customer with this history has not dropped out.
func (m *TimingModel) ProbabilityAlive(frequency, recency, T float64) float64 {
	if frequency <= 0 {
		return 1
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	x := frequency
	return 1 / (1 + a/(b+x-1)*math.Pow((alpha+T)/(alpha+recency), r+x))
}

// ProbabilityOfPurchases returns P(X(t) = n) for a customer drawn from the population.
func (m *TimingModel) ProbabilityOfPurchases(n int, t float64) float64 {
	if n < 0 {
		return 0
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	x := float64(n)
	lbeta := mathext.Lbeta(a, b)

	share := math.Log(alpha / (alpha + t))
	rest := math.Log(t / (alpha + t))

	first := mathext.Lbeta(a, b+x) - lbeta +
		lgamma(r+x) - lgamma(r) - lgamma(x+1) +
		r*share + x*rest
	p := math.Exp(first)
	if n == 0 {
		return p
	}

	var sum float64
	for j := 0; j < n; j++ {
		fj := float64(j)
		sum += math.Exp(lgamma(r+fj) - lgamma(r) - lgamma(fj+1) + fj*rest)
	}
	second := math.Exp(mathext.Lbeta(a+1, b+x-1)-lbeta) * (1 - math.Exp(r*share)*sum)
	return p + second
}

// FrequencyRecencyMatrix returns expected purchases in the next t periods for every
// frequency 0..maxFrequency (rows) and recency 0..maxRecency (columns) at age T.
func (m *TimingModel) FrequencyRecencyMatrix(t float64, maxFrequency, maxRecency int, T float64) [][]float64 {
	grid := make([][]float64, maxFrequency+1)
	for f := 0; f <= maxFrequency; f++ {
		grid[f] = make([]float64, maxRecency+1)
		for rc := 0; rc <= maxRecency; rc++ {
			recency := math.Min(float64(rc), T)
			grid[f][rc] = m.ExpectedPurchasesFor(t, float64(f), recency, T)
		}
	}
	return grid
}

// PeriodCount compares observed and model-implied customers per frequency.
type PeriodCount struct {
	Frequency int
	Observed  int
	Expected  float64
}

// PeriodTransactions tabulates, for each frequency from minFrequency to maxFrequency,
// how many customers were observed with it and how many the model expects given each
// customer's age. Expectations are conditioned on reaching minFrequency, matching a
// population already filtered to that many transactions.
func PeriodTransactions(m *TimingModel, rfm []CustomerRFM, minFrequency, maxFrequency int) []PeriodCount {
	if minFrequency < 0 {
		minFrequency = 0
	}
	if maxFrequency < minFrequency {
		return nil
	}
	out := make([]PeriodCount, maxFrequency-minFrequency+1)
	for i := range out {
		out[i].Frequency = minFrequency + i
	}
	for _, c := range rfm {
		if k := int(c.Frequency); k >= minFrequency && k <= maxFrequency {
			out[k-minFrequency].Observed++
		}
		below := 0.0
		for k := 0; k < minFrequency; k++ {
			below += m.ProbabilityOfPurchases(k, c.T)
		}
		reach := 1 - below
		if reach <= 0 {
			continue
		}
		for i := range out {
			out[i].Expected += m.ProbabilityOfPurchases(out[i].Frequency, c.T) / reach
		}
	}
	return out
}
