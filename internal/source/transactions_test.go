package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/dataset"
)

func TestTransactions(t *testing.T) {
	f, err := dataset.ReadCSV(strings.NewReader(
		"Customer,Invoice,InvoiceDate,Price,Qty\n" +
			"c1,t1,2024-01-05,2.5,4\n" +
			"c2,t2,2024-01-06 13:45:00,10,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	cols := dataset.Columns{CustomerID: "Customer", TransactionID: "Invoice", Date: "InvoiceDate", UnitPrice: "Price", Quantity: "Qty"}

	lines, err := Transactions(f, cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Date != "2024-01-05" || lines[0].UnitPrice != 2.5 || lines[0].Quantity != 4 {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if lines[1].Date != "2024-01-06 13:45:00" {
		t.Errorf("expected time part to be kept, got %q", lines[1].Date)
	}
}

func TestTransactionsMissingColumn(t *testing.T) {
	f := &dataset.Frame{Columns: []string{"customer_id", "transaction_id", "date", "unit_price"}}
	_, err := Transactions(f, dataset.DefaultColumns())
	var missing *clv.MissingColumnError
	if !errors.As(err, &missing) || missing.Column != "quantity" {
		t.Errorf("expected missing quantity, got %v", err)
	}
}

func TestTransactionsBadValue(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"customer_id", "transaction_id", "date", "unit_price", "quantity"},
		Rows:    [][]any{{"c1", "t1", "2024-01-01", "abc", "1"}},
	}
	if _, err := Transactions(f, dataset.DefaultColumns()); err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Errorf("expected row error, got %v", err)
	}
}
