package clv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

func TestAggregateAddsSalesAmount(t *testing.T) {
	f := simulateFrame(t, 50, 7)
	out, err := Aggregate(f, dataset.Columns{})
	require.NoError(t, err)

	require.Equal(t, f.Len(), out.Len())
	require.False(t, f.Has("sales_amount"), "input frame must not be modified")
	for i := range out.Rows {
		price, _ := dataset.Float(out.Value(i, "unit_price"))
		qty, _ := dataset.Float(out.Value(i, "quantity"))
		assert.Equal(t, price*qty, out.Value(i, "sales_amount"), "row %d", i)
	}
}

func TestAggregateEmptyBeforeColumnCheck(t *testing.T) {
	_, err := Aggregate(&dataset.Frame{}, dataset.Columns{})
	var empty *EmptyDatasetError
	require.ErrorAs(t, err, &empty)
}

func TestAggregateMissingColumn(t *testing.T) {
	f := &dataset.Frame{Columns: []string{"unit_price"}, Rows: [][]any{{"2.0"}}}
	_, err := Aggregate(f, dataset.Columns{})
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "quantity", missing.Column)
}

func TestAggregateColumnOverrides(t *testing.T) {
	f := &dataset.Frame{Columns: []string{"price", "qty"}, Rows: [][]any{{"2.5", "4"}}}
	out, err := Aggregate(f, dataset.Columns{UnitPrice: "price", Quantity: "qty", SalesAmount: "revenue"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.Value(0, "revenue"))
}

func TestSalesLinesMissingColumn(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"customer_id", "transaction_id", "sales_amount"},
		Rows:    [][]any{{"1", "1", 3.0}},
	}
	_, err := SalesLines(f, dataset.Columns{})
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "date", missing.Column)
}

func TestSummarize(t *testing.T) {
	lines := []SalesLine{
		line("a", "1", 0, 10),
		line("a", "2", 5, 30),
		line("b", "3", 1, 20),
		line("c", "4", 2, 5),
		line("c", "4", 2, 5), // second line of the same transaction
	}
	r, err := Summarize(lines, 0.1)
	require.NoError(t, err)
	require.Len(t, r.Customers, 3)

	a := r.Customers[0]
	assert.Equal(t, 2, a.TotalTransactions)
	assert.InDelta(t, 40, a.TotalSalesAmount, 1e-12)
	assert.InDelta(t, 20, a.AverageOrderValue, 1e-12)
	assert.InDelta(t, 2.0/3.0, a.PurchaseFrequency, 1e-12)
	assert.InDelta(t, 4, a.ProfitMargin, 1e-12)

	c := r.Customers[2]
	assert.Equal(t, 1, c.TotalTransactions)
	assert.InDelta(t, 10, c.TotalSalesAmount, 1e-12)

	assert.InDelta(t, 1.0/3.0, r.RepeatRate, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.ChurnRate, 1e-12)
	assert.InDelta(t, a.CustomerValue/r.ChurnRate*a.ProfitMargin, a.HistoricCLV, 1e-12)
	assert.Empty(t, r.Warnings)
}

func TestSummarizeNoRepeatCustomers(t *testing.T) {
	lines := []SalesLine{line("a", "1", 0, 10), line("b", "2", 1, 20)}
	r, err := Summarize(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.RepeatRate)
	assert.Equal(t, 1.0, r.ChurnRate)
	assert.Len(t, r.Warnings, 1)
}

func TestSummarizeProfitMarginRate(t *testing.T) {
	lines := []SalesLine{line("a", "1", 0, 10), line("a", "2", 5, 30), line("b", "3", 1, 20)}

	r, err := Summarize(lines, 0)
	require.NoError(t, err)
	for _, c := range r.Customers {
		assert.Equal(t, 0.0, c.ProfitMargin, c.CustomerID)
		assert.Equal(t, 0.0, c.HistoricCLV, c.CustomerID)
	}

	_, err = Summarize(lines, -0.1)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "summary", pre.Stage)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil, 0.1)
	var empty *EmptyDatasetError
	require.ErrorAs(t, err, &empty)
}
