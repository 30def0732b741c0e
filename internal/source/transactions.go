package source

import (
	"fmt"

	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/database"
	"github.com/TobiSchelling/clvscore/internal/dataset"
)

// Transactions converts a frame to store lines using the column mapping.
// Dates are normalized to YYYY-MM-DD, with a time part only when present.
func Transactions(f *dataset.Frame, cols dataset.Columns) ([]database.Transaction, error) {
	cols = cols.WithDefaults()
	for _, name := range []string{cols.CustomerID, cols.TransactionID, cols.Date, cols.UnitPrice, cols.Quantity} {
		if !f.Has(name) {
			return nil, &clv.MissingColumnError{Column: name}
		}
	}

	out := make([]database.Transaction, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		date, err := dataset.Time(f.Value(i, cols.Date))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		price, err := dataset.Float(f.Value(i, cols.UnitPrice))
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i+1, cols.UnitPrice, err)
		}
		qty, err := dataset.Float(f.Value(i, cols.Quantity))
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i+1, cols.Quantity, err)
		}

		layout := "2006-01-02"
		if h, m, s := date.Clock(); h != 0 || m != 0 || s != 0 {
			layout = "2006-01-02 15:04:05"
		}
		out = append(out, database.Transaction{
			CustomerID:    dataset.String(f.Value(i, cols.CustomerID)),
			TransactionID: dataset.String(f.Value(i, cols.TransactionID)),
			Date:          date.Format(layout),
			UnitPrice:     price,
			Quantity:      qty,
		})
	}
	return out, nil
}
