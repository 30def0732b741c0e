// Package report renders scoring runs as markdown and JSON exports.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/TobiSchelling/clvscore/internal/clv"
)

// TopCustomers is how many customers the markdown report lists.
const TopCustomers = 10

// maxFrequencyCheck bounds the period-transactions table.
const maxFrequencyCheck = 10

// Frequency/recency table bounds: rows up to matrixMaxFrequency, at most
// matrixColumns recency columns.
const (
	matrixMaxFrequency = 10
	matrixColumns      = 8
)

// Markdown renders a run outcome as a markdown report.
func Markdown(runID, source string, o *clv.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Customer Lifetime Value Report\n\n")
	fmt.Fprintf(&b, "Run `%s` from %s, as of %s.\n\n", runID, source, o.Now.Format("2006-01-02"))

	b.WriteString("## Customers\n\n")
	fmt.Fprintf(&b, "- Customers: %d\n", len(o.Summary.Customers))
	fmt.Fprintf(&b, "- Repeat customers: %d\n", len(o.RFM))
	fmt.Fprintf(&b, "- Repeat rate: %s%%\n", Ratio(o.Summary.RepeatRate*100).StringFixed(1))
	fmt.Fprintf(&b, "- Churn rate: %s%%\n", Ratio(o.Summary.ChurnRate*100).StringFixed(1))
	var total float64
	for _, r := range o.Results {
		total += r.CLV
	}
	fmt.Fprintf(&b, "- Total projected CLV: %s\n", Money(total).StringFixed(2))
	for _, w := range o.Summary.Warnings {
		fmt.Fprintf(&b, "\n> **Warning:** %s\n", w)
	}

	b.WriteString("\n## Models\n\n")
	b.WriteString("| Model | Parameters | Log-likelihood |\n|---|---|---|\n")
	t := o.Timing
	fmt.Fprintf(&b, "| BG/NBD | r=%s, alpha=%s, a=%s, b=%s | %s |\n",
		Ratio(t.R), Ratio(t.Alpha), Ratio(t.A), Ratio(t.B), Ratio(t.LogLikelihood))
	m := o.Monetary
	fmt.Fprintf(&b, "| Gamma-Gamma | p=%s, q=%s, v=%s | %s |\n",
		Ratio(m.P), Ratio(m.Q), Ratio(m.V), Ratio(m.LogLikelihood))

	b.WriteString("\n## Segments\n\n")
	b.WriteString("| Segment | Customers | Min CLV | Max CLV | Mean CLV | Total CLV | Mean frequency | Mean monetary |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range o.Segments {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s |\n",
			s.Label, s.Count,
			Money(s.MinCLV).StringFixed(2), Money(s.MaxCLV).StringFixed(2),
			Money(s.Mean.CLV).StringFixed(2), Money(s.Sum.CLV).StringFixed(2),
			Ratio(s.Mean.Frequency).StringFixed(2), Money(s.Mean.Monetary).StringFixed(2))
	}

	if edges := clv.QuantileEdges(o.Results, len(o.Segments)); len(edges) > 0 {
		parts := make([]string, len(edges))
		for i, e := range edges {
			parts[i] = Money(e).StringFixed(2)
		}
		fmt.Fprintf(&b, "\nSegment boundaries (CLV): %s\n", strings.Join(parts, " / "))
	}

	fmt.Fprintf(&b, "\n## Top %d customers\n\n", TopCustomers)
	b.WriteString("| Customer | Segment | Frequency | Monetary | P(alive) | Predicted purchases | CLV |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
	for i, r := range o.Results {
		if i == TopCustomers {
			break
		}
		fmt.Fprintf(&b, "| %s | %s | %.0f | %s | %s | %s | %s |\n",
			r.CustomerID, r.Segment, r.Frequency, Money(r.Monetary).StringFixed(2),
			Ratio(r.ProbabilityAlive).StringFixed(3), Ratio(r.PredictedPurchases).StringFixed(3),
			Money(r.CLV).StringFixed(2))
	}

	b.WriteString("\n## Model check\n\n")
	b.WriteString("Repeat customers by number of transactions, observed against the timing model.\n\n")
	b.WriteString("| Transactions | Observed | Expected |\n|---:|---:|---:|\n")
	for _, c := range clv.PeriodTransactions(o.Timing, o.RFM, 2, maxFrequencyCheck) {
		fmt.Fprintf(&b, "| %d | %d | %s |\n", c.Frequency, c.Observed, Ratio(c.Expected).StringFixed(1))
	}

	writeFrequencyRecency(&b, o)
	return b.String()
}

// writeFrequencyRecency adds expected purchases in the next period for
// customers as old as the oldest observed one.
func writeFrequencyRecency(b *strings.Builder, o *clv.Outcome) {
	var age float64
	maxFrequency := 0
	for _, c := range o.RFM {
		age = math.Max(age, c.T)
		maxFrequency = max(maxFrequency, int(c.Frequency))
	}
	maxFrequency = min(maxFrequency, matrixMaxFrequency)
	if maxFrequency < 2 {
		return
	}
	maxRecency := int(math.Ceil(age))
	step := max(1, (maxRecency+matrixColumns)/matrixColumns)
	grid := o.Timing.FrequencyRecencyMatrix(1, maxFrequency, maxRecency, age)

	fmt.Fprintf(b, "\n## Frequency and recency\n\n")
	fmt.Fprintf(b, "Expected purchases in the next period at age %s, by transactions (rows) and recency (columns).\n\n",
		Ratio(age).StringFixed(1))
	b.WriteString("| Transactions |")
	for r := 0; r <= maxRecency; r += step {
		fmt.Fprintf(b, " %d |", r)
	}
	b.WriteString("\n|---:|")
	for r := 0; r <= maxRecency; r += step {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for f := 2; f <= maxFrequency; f++ {
		fmt.Fprintf(b, "| %d |", f)
		for r := 0; r <= maxRecency; r += step {
			fmt.Fprintf(b, " %s |", Ratio(grid[f][r]).StringFixed(2))
		}
		b.WriteString("\n")
	}
}
