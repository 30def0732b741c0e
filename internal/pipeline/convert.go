package pipeline

import (
	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/database"
)

func toRun(id, source, markdown string, o *clv.Outcome) *database.Run {
	var total float64
	for _, r := range o.Results {
		total += r.CLV
	}
	return &database.Run{
		ID:              id,
		Source:          source,
		ReferenceDate:   o.Now.Format("2006-01-02"),
		Customers:       len(o.Summary.Customers),
		RepeatCustomers: len(o.RFM),
		RepeatRate:      o.Summary.RepeatRate,
		ChurnRate:       o.Summary.ChurnRate,
		TotalCLV:        total,
		Warnings:        o.Summary.Warnings,
		ReportMarkdown:  markdown,
		Params: []database.ModelParam{
			{Model: "bgnbd", Name: "r", Value: o.Timing.R},
			{Model: "bgnbd", Name: "alpha", Value: o.Timing.Alpha},
			{Model: "bgnbd", Name: "a", Value: o.Timing.A},
			{Model: "bgnbd", Name: "b", Value: o.Timing.B},
			{Model: "bgnbd", Name: "log_likelihood", Value: o.Timing.LogLikelihood},
			{Model: "gamma_gamma", Name: "p", Value: o.Monetary.P},
			{Model: "gamma_gamma", Name: "q", Value: o.Monetary.Q},
			{Model: "gamma_gamma", Name: "v", Value: o.Monetary.V},
			{Model: "gamma_gamma", Name: "log_likelihood", Value: o.Monetary.LogLikelihood},
		},
	}
}

func toResults(results []clv.CLVResult) []database.CustomerResult {
	out := make([]database.CustomerResult, len(results))
	for i, r := range results {
		out[i] = database.CustomerResult{
			CustomerID:            r.CustomerID,
			Recency:               r.Recency,
			T:                     r.T,
			Frequency:             r.Frequency,
			Monetary:              r.Monetary,
			PredictedPurchases:    r.PredictedPurchases,
			ExpectedAverageProfit: r.ExpectedAverageProfit,
			ProbabilityAlive:      r.ProbabilityAlive,
			CLV:                   r.CLV,
			Segment:               r.Segment,
		}
	}
	return out
}

// SegmentRows converts segment summaries to their stored form.
func SegmentRows(segments []clv.SegmentSummary) []database.SegmentRow {
	out := make([]database.SegmentRow, len(segments))
	for i, s := range segments {
		out[i] = database.SegmentRow{
			Label:                  s.Label,
			Customers:              s.Count,
			MinCLV:                 s.MinCLV,
			MaxCLV:                 s.MaxCLV,
			MeanCLV:                s.Mean.CLV,
			SumCLV:                 s.Sum.CLV,
			MeanFrequency:          s.Mean.Frequency,
			MeanMonetary:           s.Mean.Monetary,
			MeanPredictedPurchases: s.Mean.PredictedPurchases,
		}
	}
	return out
}
