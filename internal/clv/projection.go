package clv

import (
	"fmt"
	"math"
)

// Projection configures the discounted CLV horizon.
type Projection struct {
	// TimePeriod is the horizon length in months.
	TimePeriod int `yaml:"time_period"`
	// DiscountRate is applied once per month.
	DiscountRate float64 `yaml:"discount_rate"`
	// Freq is the time unit the timing model was fit in: W, D, H or M.
	Freq string `yaml:"freq"`
}

// DefaultProjection is 12 months at 1% per month on a weekly model.
func DefaultProjection() Projection {
	return Projection{TimePeriod: 12, DiscountRate: 0.01, Freq: "W"}
}

// periodLength is the number of model time units in one projected month.
var periodLength = map[string]float64{
	"W": 4.345,
	"M": 1,
	"D": 30,
	"H": 30 * 24,
}

// Validate checks the projection settings.
func (p Projection) Validate() error {
	if p.TimePeriod < 1 {
		return &PreconditionError{Stage: "projection", Reason: fmt.Sprintf("time period must be at least 1, got %d", p.TimePeriod)}
	}
	if p.DiscountRate < 0 || math.IsNaN(p.DiscountRate) || math.IsInf(p.DiscountRate, 0) {
		return &PreconditionError{Stage: "projection", Reason: fmt.Sprintf("discount rate must be a finite value >= 0, got %g", p.DiscountRate)}
	}
	if _, ok := periodLength[p.Freq]; !ok {
		return &PreconditionError{Stage: "projection", Reason: fmt.Sprintf("unknown period unit %q (want W, D, H or M)", p.Freq)}
	}
	return nil
}

// DiscountFactor returns 1/(1+rate)^period.
func (p Projection) DiscountFactor(period int) float64 {
	return 1 / math.Pow(1+p.DiscountRate, float64(period))
}

// Project returns the discounted expected value per customer over the horizon.
// Each month's purchases are the difference of the cumulative expectation at its
// end and start, valued at the customer's expected average transaction value.
func Project(timing *TimingModel, monetary *MonetaryModel, rfm []CustomerRFM, p Projection) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := timing.check(); err != nil {
		return nil, err
	}
	factor := periodLength[p.Freq]

	out := make([]float64, len(rfm))
	for ci, c := range rfm {
		value := monetary.ExpectedAverageValue(c.Frequency, c.Monetary)
		prev := 0.0
		var total float64
		for i := 1; i <= p.TimePeriod; i++ {
			cum := timing.ExpectedPurchasesFor(float64(i)*factor, c.Frequency, c.Recency, c.T)
			total += value * (cum - prev) * p.DiscountFactor(i)
			prev = cum
		}
		out[ci] = total
	}
	return out, nil
}
