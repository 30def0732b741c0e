package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/clvscore/internal/database"
)

// Export is the JSON document written for a stored run.
type Export struct {
	RunID         string            `json:"run_id"`
	Source        string            `json:"source"`
	ReferenceDate string            `json:"reference_date"`
	CreatedAt     string            `json:"created_at,omitempty"`
	RepeatRate    decimal.Decimal   `json:"repeat_rate"`
	ChurnRate     decimal.Decimal   `json:"churn_rate"`
	TotalCLV      decimal.Decimal   `json:"total_clv"`
	Warnings      []string          `json:"warnings,omitempty"`
	Parameters    map[string]Params `json:"parameters"`
	Segments      []ExportSegment   `json:"segments"`
	Customers     []ExportCustomer  `json:"customers"`
}

// Params maps parameter names to fitted values for one model.
type Params map[string]float64

type ExportSegment struct {
	Label     string          `json:"label"`
	Customers int             `json:"customers"`
	MinCLV    decimal.Decimal `json:"min_clv"`
	MaxCLV    decimal.Decimal `json:"max_clv"`
	MeanCLV   decimal.Decimal `json:"mean_clv"`
	TotalCLV  decimal.Decimal `json:"total_clv"`
}

type ExportCustomer struct {
	CustomerID            string          `json:"customer_id"`
	Segment               string          `json:"segment"`
	Recency               float64         `json:"recency"`
	T                     float64         `json:"T"`
	Frequency             float64         `json:"frequency"`
	Monetary              decimal.Decimal `json:"monetary"`
	PredictedPurchases    decimal.Decimal `json:"predicted_purchases"`
	ExpectedAverageProfit decimal.Decimal `json:"expected_average_profit"`
	ProbabilityAlive      decimal.Decimal `json:"probability_alive"`
	CLV                   decimal.Decimal `json:"clv"`
}

// NewExport builds the export document for a stored run.
func NewExport(run *database.Run, results []database.CustomerResult, segments []database.SegmentRow) *Export {
	e := &Export{
		RunID:         run.ID,
		Source:        run.Source,
		ReferenceDate: run.ReferenceDate,
		RepeatRate:    Ratio(run.RepeatRate),
		ChurnRate:     Ratio(run.ChurnRate),
		TotalCLV:      Money(run.TotalCLV),
		Warnings:      run.Warnings,
		Parameters:    make(map[string]Params),
		Segments:      make([]ExportSegment, 0, len(segments)),
		Customers:     make([]ExportCustomer, 0, len(results)),
	}
	if run.CreatedAt != nil {
		e.CreatedAt = *run.CreatedAt
	}
	for _, p := range run.Params {
		if e.Parameters[p.Model] == nil {
			e.Parameters[p.Model] = Params{}
		}
		e.Parameters[p.Model][p.Name] = p.Value
	}
	for _, s := range segments {
		e.Segments = append(e.Segments, ExportSegment{
			Label:     s.Label,
			Customers: s.Customers,
			MinCLV:    Money(s.MinCLV),
			MaxCLV:    Money(s.MaxCLV),
			MeanCLV:   Money(s.MeanCLV),
			TotalCLV:  Money(s.SumCLV),
		})
	}
	for _, r := range results {
		e.Customers = append(e.Customers, ExportCustomer{
			CustomerID:            r.CustomerID,
			Segment:               r.Segment,
			Recency:               r.Recency,
			T:                     r.T,
			Frequency:             r.Frequency,
			Monetary:              Money(r.Monetary),
			PredictedPurchases:    Ratio(r.PredictedPurchases),
			ExpectedAverageProfit: Money(r.ExpectedAverageProfit),
			ProbabilityAlive:      Ratio(r.ProbabilityAlive),
			CLV:                   Money(r.CLV),
		})
	}
	return e
}

// ExportFileName returns the timestamped file name for an export written at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("clv_%s.json", t.Format("20060102_150405"))
}

// WriteExport writes e as indented JSON into dir and returns the file path.
func WriteExport(dir string, e *Export, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(t))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
