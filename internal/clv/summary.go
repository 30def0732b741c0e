package clv

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// DefaultProfitMarginRate is the share of sales counted as profit in the historic summary.
const DefaultProfitMarginRate = 0.10

// CustomerSummary holds the historic aggregates of one customer.
type CustomerSummary struct {
	CustomerID        string
	TotalTransactions int
	TotalSalesAmount  float64
	AverageOrderValue float64
	PurchaseFrequency float64
	ProfitMargin      float64
	CustomerValue     float64
	HistoricCLV       float64
}

// SummaryResult holds the per-customer summary and population rates.
type SummaryResult struct {
	Customers  []CustomerSummary
	RepeatRate float64
	ChurnRate  float64
	Warnings   []string
}

// customerHistory accumulates one customer's lines.
type customerHistory struct {
	first, last  time.Time
	transactions map[string]struct{}
	sales        float64
}

// groupByCustomer collects lines per customer and returns customer ids in sorted order.
func groupByCustomer(lines []SalesLine) (map[string]*customerHistory, []string) {
	groups := make(map[string]*customerHistory)
	var ids []string
	for _, l := range lines {
		h, ok := groups[l.CustomerID]
		if !ok {
			h = &customerHistory{first: l.Date, last: l.Date, transactions: make(map[string]struct{})}
			groups[l.CustomerID] = h
			ids = append(ids, l.CustomerID)
		}
		if l.Date.Before(h.first) {
			h.first = l.Date
		}
		if l.Date.After(h.last) {
			h.last = l.Date
		}
		h.transactions[l.TransactionID] = struct{}{}
		h.sales += l.SalesAmount
	}
	sort.Strings(ids)
	return groups, ids
}

// Summarize computes historic per-customer aggregates, repeat and churn rates,
// and the margin-based historic CLV. A zero margin rate yields zero historic CLV.
func Summarize(lines []SalesLine, profitMarginRate float64) (*SummaryResult, error) {
	if len(lines) == 0 {
		return nil, &EmptyDatasetError{Stage: "summary"}
	}
	if profitMarginRate < 0 || math.IsNaN(profitMarginRate) || math.IsInf(profitMarginRate, 0) {
		return nil, &PreconditionError{
			Stage:  "summary",
			Reason: fmt.Sprintf("profit margin rate must be a finite value >= 0, got %g", profitMarginRate),
		}
	}

	groups, ids := groupByCustomer(lines)
	n := float64(len(ids))

	r := &SummaryResult{Customers: make([]CustomerSummary, 0, len(ids))}
	repeaters := 0
	for _, id := range ids {
		h := groups[id]
		total := len(h.transactions)
		if total > 1 {
			repeaters++
		}
		aov := h.sales / float64(total)
		freq := float64(total) / n
		r.Customers = append(r.Customers, CustomerSummary{
			CustomerID:        id,
			TotalTransactions: total,
			TotalSalesAmount:  h.sales,
			AverageOrderValue: aov,
			PurchaseFrequency: freq,
			ProfitMargin:      h.sales * profitMarginRate,
			CustomerValue:     aov * freq,
		})
	}

	if repeaters == 0 {
		msg := "no customers with more than one transaction; repeat rate is 0"
		log.Printf("Warning: %s", msg)
		r.Warnings = append(r.Warnings, msg)
	} else {
		r.RepeatRate = float64(repeaters) / n
	}
	r.ChurnRate = 1 - r.RepeatRate

	if r.ChurnRate == 0 {
		msg := "every customer repeated; churn rate is 0 and historic CLV is left at 0"
		log.Printf("Warning: %s", msg)
		r.Warnings = append(r.Warnings, msg)
		return r, nil
	}
	for i := range r.Customers {
		c := &r.Customers[i]
		c.HistoricCLV = c.CustomerValue / r.ChurnRate * c.ProfitMargin
	}
	return r, nil
}
