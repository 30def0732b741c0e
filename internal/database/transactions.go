package database

import (
	"fmt"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

// InsertTransactions stores sales lines in a single transaction and returns
// the number inserted.
func (db *DB) InsertTransactions(lines []Transaction) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO transactions (customer_id, transaction_id, date, unit_price, quantity)
		VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, l := range lines {
		if _, err := stmt.Exec(l.CustomerID, l.TransactionID, l.Date, l.UnitPrice, l.Quantity); err != nil {
			return 0, fmt.Errorf("inserting line %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// ClearTransactions removes all imported lines.
func (db *DB) ClearTransactions() (int64, error) {
	result, err := db.conn.Exec("DELETE FROM transactions")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// LoadTransactions returns every imported line as a frame, in import order.
// Columns are named by cols so the frame matches the configured mapping.
func (db *DB) LoadTransactions(cols dataset.Columns) (*dataset.Frame, error) {
	rows, err := db.conn.Query(
		`SELECT customer_id, transaction_id, date, unit_price, quantity
		FROM transactions ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	f, err := dataset.FromRows(rows)
	if err != nil {
		return nil, err
	}
	cols = cols.WithDefaults()
	f.Columns = []string{cols.CustomerID, cols.TransactionID, cols.Date, cols.UnitPrice, cols.Quantity}
	return f, nil
}
