package clv

import "math"

// DefaultMonetaryPenalizer is the L2 coefficient for the monetary fit.
const DefaultMonetaryPenalizer = 0.01

// MonetaryModel is a fitted Gamma-Gamma model of average transaction value.
// Transaction values are Gamma(P, nu) and nu is Gamma(Q, V) across customers.
type MonetaryModel struct {
	P         float64
	Q         float64
	V         float64
	Penalizer float64

	LogLikelihood float64
	Evaluations   int
}

// FitMonetary estimates the Gamma-Gamma parameters from repeat customers only.
func FitMonetary(rfm []CustomerRFM, penalizer float64, settings FitSettings) (*MonetaryModel, error) {
	if len(rfm) == 0 {
		return nil, &EmptyDatasetError{Stage: "monetary fit"}
	}
	for _, c := range rfm {
		if c.Frequency <= 1 {
			return nil, &PreconditionError{
				Stage:  "monetary fit",
				Reason: "customer " + c.CustomerID + " has frequency <= 1; only repeat customers can be fit",
			}
		}
		if c.Monetary <= 0 {
			return nil, &PreconditionError{
				Stage:  "monetary fit",
				Reason: "customer " + c.CustomerID + " has non-positive monetary value",
			}
		}
	}

	n := float64(len(rfm))
	objective := func(p []float64) float64 {
		var ll float64
		for _, c := range rfm {
			ll += gammaGammaLogLikelihood(p[0], p[1], p[2], c.Frequency, c.Monetary)
		}
		return -ll/n + l2(penalizer, p)
	}

	res, err := minimizeLog("monetary", 3, objective, settings)
	if err != nil {
		return nil, err
	}

	m := &MonetaryModel{
		P:           res.params[0],
		Q:           res.params[1],
		V:           res.params[2],
		Penalizer:   penalizer,
		Evaluations: res.evaluations,
	}
	m.LogLikelihood = -(res.objective - l2(penalizer, res.params))
	return m, nil
}

func gammaGammaLogLikelihood(p, q, v, x, m float64) float64 {
	px := p * x
	return lgamma(px+q) - lgamma(px) - lgamma(q) +
		q*math.Log(v) +
		(px-1)*math.Log(m) +
		px*math.Log(x) -
		(px+q)*math.Log(x*m+v)
}

// Params returns the parameters in fit order.
func (m *MonetaryModel) Params() []float64 {
	return []float64{m.P, m.Q, m.V}
}

// PopulationMean is the expected transaction value across all customers.
// It is undefined (NaN) when Q <= 1.
func (m *MonetaryModel) PopulationMean() float64 {
	if m.Q <= 1 {
		return math.NaN()
	}
	return m.V * m.P / (m.Q - 1)
}

// ExpectedAverageValue shrinks a customer's observed average toward the population mean,
// weighting the observed average more heavily as frequency grows.
// With Q <= 1 the population mean does not exist and the observed average is returned.
func (m *MonetaryModel) ExpectedAverageValue(frequency, monetary float64) float64 {
	if m.Q <= 1 {
		return monetary
	}
	px := m.P * frequency
	weight := px / (px + m.Q - 1)
	return (1-weight)*m.PopulationMean() + weight*monetary
}
