package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/database"
)

func testOutcome() *clv.Outcome {
	results := []clv.CLVResult{
		{CustomerRFM: clv.CustomerRFM{CustomerID: "c2", Frequency: 8, Recency: 40, T: 50, Monetary: 41.234}, ProbabilityAlive: 0.9, PredictedPurchases: 0.7, CLV: 310.456, Segment: "A"},
		{CustomerRFM: clv.CustomerRFM{CustomerID: "c1", Frequency: 2, Recency: 3, T: 30, Monetary: 12}, ProbabilityAlive: 0.4, PredictedPurchases: 0.1, CLV: 15.5, Segment: "B"},
	}
	return &clv.Outcome{
		Now: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Summary: &clv.SummaryResult{
			Customers:  make([]clv.CustomerSummary, 5),
			RepeatRate: 0.4,
			ChurnRate:  0.6,
			Warnings:   []string{"churn looks high"},
		},
		RFM:      []clv.CustomerRFM{results[0].CustomerRFM, results[1].CustomerRFM},
		Timing:   &clv.TimingModel{R: 0.5, Alpha: 2, A: 1.6, B: 3.2},
		Monetary: &clv.MonetaryModel{P: 6, Q: 4, V: 15},
		Results:  results,
		Segments: clv.SummarizeSegments(results),
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown("run-1", "csv:sales.csv", testOutcome())

	for _, want := range []string{
		"# Customer Lifetime Value Report",
		"`run-1` from csv:sales.csv, as of 2024-12-31",
		"- Customers: 5",
		"- Repeat rate: 40.0%",
		"- Total projected CLV: 325.96",
		"**Warning:** churn looks high",
		"| BG/NBD | r=0.5, alpha=2, a=1.6, b=3.2 |",
		"| A | 1 | 310.46 |",
		"| c2 | A | 8 | 41.23 |",
		"## Model check",
		"Segment boundaries (CLV): 15.50",
		"## Frequency and recency",
		"| Transactions | 0 | 7 | 14 |",
		"\n| 8 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in report:\n%s", want, md)
		}
	}
	if strings.Index(md, "| c2 |") > strings.Index(md, "| c1 |") {
		t.Error("expected customers in CLV order")
	}
}

func TestMarkdownModelCheckStartsAtRepeatCustomers(t *testing.T) {
	md := Markdown("run-1", "local", testOutcome())
	check := md[strings.Index(md, "## Model check"):strings.Index(md, "## Frequency and recency")]
	if strings.Contains(check, "\n| 0 |") || strings.Contains(check, "\n| 1 |") {
		t.Errorf("expected model check to start at two transactions:\n%s", check)
	}
	if !strings.Contains(check, "\n| 2 | 1 |") || !strings.Contains(check, "\n| 8 | 1 |") {
		t.Errorf("expected observed counts for c1 and c2:\n%s", check)
	}
}

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	if got != "clv_20250304_050607.json" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestWriteExport(t *testing.T) {
	created := "2025-01-01 10:00:00"
	run := &database.Run{
		ID:            "run-1",
		Source:        "local",
		ReferenceDate: "2024-12-31",
		RepeatRate:    0.123456,
		TotalCLV:      1234.5678,
		CreatedAt:     &created,
		Params: []database.ModelParam{
			{Model: "bgnbd", Name: "r", Value: 0.5},
			{Model: "gamma_gamma", Name: "q", Value: 4},
		},
	}
	results := []database.CustomerResult{{CustomerID: "c1", Segment: "A", Frequency: 3, Monetary: 10.005, CLV: 99.999}}
	segments := []database.SegmentRow{{Label: "A", Customers: 1, MinCLV: 99.999, MaxCLV: 99.999, MeanCLV: 99.999, SumCLV: 99.999}}

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := WriteExport(dir, NewExport(run, results, segments), time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	if filepath.Base(path) != "clv_20250102_030405.json" {
		t.Errorf("unexpected path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if doc["total_clv"] != "1234.57" {
		t.Errorf("expected total_clv 1234.57, got %v", doc["total_clv"])
	}
	if doc["repeat_rate"] != "0.1235" {
		t.Errorf("expected repeat_rate 0.1235, got %v", doc["repeat_rate"])
	}
	params := doc["parameters"].(map[string]any)
	if params["bgnbd"].(map[string]any)["r"] != 0.5 {
		t.Errorf("unexpected parameters %v", params)
	}
	customers := doc["customers"].([]any)
	if len(customers) != 1 || customers[0].(map[string]any)["clv"] != "100" {
		t.Errorf("unexpected customers %v", customers)
	}
}
