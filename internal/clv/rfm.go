package clv

import (
	"math"
	"time"
)

// DefaultReferenceOffsetDays places the reference point one day after the last observed purchase.
const DefaultReferenceOffsetDays = 1

const daysPerWeek = 7.0

// CustomerRFM is the model input for one repeat customer. Recency and T are in weeks.
type CustomerRFM struct {
	CustomerID string
	Recency    float64
	T          float64
	Frequency  float64
	Monetary   float64
}

// ReferenceTime returns the latest purchase date shifted by offsetDays.
func ReferenceTime(lines []SalesLine, offsetDays int) time.Time {
	var latest time.Time
	for _, l := range lines {
		if l.Date.After(latest) {
			latest = l.Date
		}
	}
	return latest.AddDate(0, 0, offsetDays)
}

// BuildRFM computes recency, age, frequency and average order value per customer
// as of now, then keeps only customers with more than one transaction.
func BuildRFM(lines []SalesLine, now time.Time) ([]CustomerRFM, error) {
	if len(lines) == 0 {
		return nil, &EmptyDatasetError{Stage: "rfm"}
	}

	groups, ids := groupByCustomer(lines)

	out := make([]CustomerRFM, 0, len(ids))
	for _, id := range ids {
		h := groups[id]
		if now.Before(h.last) {
			return nil, &PreconditionError{
				Stage:  "rfm",
				Reason: "reference time " + now.Format("2006-01-02") + " precedes a purchase of customer " + id,
			}
		}

		frequency := float64(len(h.transactions))
		// Filtering happens after frequency is taken from the full history.
		if frequency <= 1 {
			continue
		}
		out = append(out, CustomerRFM{
			CustomerID: id,
			Recency:    wholeDays(h.last.Sub(h.first)) / daysPerWeek,
			T:          wholeDays(now.Sub(h.first)) / daysPerWeek,
			Frequency:  frequency,
			Monetary:   h.sales / frequency,
		})
	}

	if len(out) == 0 {
		return nil, &EmptyDatasetError{Stage: "rfm: no repeat customers"}
	}
	return out, nil
}

func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}
