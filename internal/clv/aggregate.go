package clv

import (
	"fmt"
	"time"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

// SalesLine is one line item with its derived sales amount.
type SalesLine struct {
	CustomerID    string
	TransactionID string
	Date          time.Time
	UnitPrice     float64
	Quantity      float64
	SalesAmount   float64
}

// Aggregate returns a copy of the frame with sales_amount = unit_price * quantity.
func Aggregate(f *dataset.Frame, cols dataset.Columns) (*dataset.Frame, error) {
	if f.Len() == 0 {
		return nil, &EmptyDatasetError{Stage: "aggregate"}
	}
	cols = cols.WithDefaults()
	for _, name := range []string{cols.UnitPrice, cols.Quantity} {
		if !f.Has(name) {
			return nil, &MissingColumnError{Column: name}
		}
	}

	priceIdx, qtyIdx := f.Index(cols.UnitPrice), f.Index(cols.Quantity)
	amounts := make([]any, f.Len())
	for i, row := range f.Rows {
		price, err := dataset.Float(row[priceIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, cols.UnitPrice, err)
		}
		qty, err := dataset.Float(row[qtyIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, cols.Quantity, err)
		}
		amounts[i] = price * qty
	}
	return f.WithColumn(cols.SalesAmount, amounts)
}

// SalesLines converts an aggregated frame into typed records.
func SalesLines(f *dataset.Frame, cols dataset.Columns) ([]SalesLine, error) {
	if f.Len() == 0 {
		return nil, &EmptyDatasetError{Stage: "rfm"}
	}
	cols = cols.WithDefaults()
	for _, name := range []string{cols.Date, cols.CustomerID, cols.TransactionID, cols.SalesAmount} {
		if !f.Has(name) {
			return nil, &MissingColumnError{Column: name}
		}
	}

	var (
		custIdx  = f.Index(cols.CustomerID)
		txIdx    = f.Index(cols.TransactionID)
		dateIdx  = f.Index(cols.Date)
		amtIdx   = f.Index(cols.SalesAmount)
		priceIdx = f.Index(cols.UnitPrice)
		qtyIdx   = f.Index(cols.Quantity)
	)

	lines := make([]SalesLine, 0, f.Len())
	for i, row := range f.Rows {
		date, err := dataset.Time(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, cols.Date, err)
		}
		amount, err := dataset.Float(row[amtIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, cols.SalesAmount, err)
		}
		line := SalesLine{
			CustomerID:    dataset.String(row[custIdx]),
			TransactionID: dataset.String(row[txIdx]),
			Date:          date,
			SalesAmount:   amount,
		}
		if priceIdx >= 0 {
			line.UnitPrice, _ = dataset.Float(row[priceIdx])
		}
		if qtyIdx >= 0 {
			line.Quantity, _ = dataset.Float(row[qtyIdx])
		}
		lines = append(lines, line)
	}
	return lines, nil
}
