package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SaveRun stores a run with its parameters, per-customer results and segment
// summaries. Either everything is written or nothing is.
func (db *DB) SaveRun(run *Run, results []CustomerResult, segments []SegmentRow) error {
	var warnings *string
	if len(run.Warnings) > 0 {
		data, err := json.Marshal(run.Warnings)
		if err != nil {
			return err
		}
		s := string(data)
		warnings = &s
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, source, reference_date, customers, repeat_customers,
		repeat_rate, churn_rate, total_clv, warnings, report_markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.ReferenceDate, run.Customers, run.RepeatCustomers,
		run.RepeatRate, run.ChurnRate, run.TotalCLV, warnings, run.ReportMarkdown,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, p := range run.Params {
		if _, err := tx.Exec(
			"INSERT INTO model_params (run_id, model, name, value) VALUES (?, ?, ?, ?)",
			run.ID, p.Model, p.Name, p.Value,
		); err != nil {
			return fmt.Errorf("inserting parameter %s.%s: %w", p.Model, p.Name, err)
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO customer_results (run_id, customer_id, recency, t, frequency, monetary,
		predicted_purchases, expected_average_profit, probability_alive, clv, segment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range results {
		if _, err := stmt.Exec(run.ID, r.CustomerID, r.Recency, r.T, r.Frequency, r.Monetary,
			r.PredictedPurchases, r.ExpectedAverageProfit, r.ProbabilityAlive, r.CLV, r.Segment); err != nil {
			return fmt.Errorf("inserting result for %s: %w", r.CustomerID, err)
		}
	}

	for _, s := range segments {
		if _, err := tx.Exec(
			`INSERT INTO segment_summaries (run_id, label, customers, min_clv, max_clv, mean_clv,
			sum_clv, mean_frequency, mean_monetary, mean_predicted_purchases)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, s.Label, s.Customers, s.MinCLV, s.MaxCLV, s.MeanCLV,
			s.SumCLV, s.MeanFrequency, s.MeanMonetary, s.MeanPredictedPurchases,
		); err != nil {
			return fmt.Errorf("inserting segment %s: %w", s.Label, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, source, reference_date, customers, repeat_customers, repeat_rate,
	churn_rate, total_clv, warnings, report_markdown, created_at`

// GetRun returns a run with its parameters, or nil if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Params, err = db.getParams(id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetLatestRun returns the most recent run, or nil if none exist.
func (db *DB) GetLatestRun() (*Run, error) {
	var id string
	err := db.conn.QueryRow("SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.GetRun(id)
}

// GetAllRuns returns all runs, newest first, without parameters.
func (db *DB) GetAllRuns() ([]Run, error) {
	rows, err := db.conn.Query("SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetResults returns a run's customer results by CLV descending. A non-empty
// segment restricts them to that segment.
func (db *DB) GetResults(runID, segment string) ([]CustomerResult, error) {
	query := `SELECT customer_id, recency, t, frequency, monetary, predicted_purchases,
		expected_average_profit, probability_alive, clv, segment
		FROM customer_results WHERE run_id = ?`
	args := []any{runID}
	if segment != "" {
		query += " AND segment = ?"
		args = append(args, segment)
	}
	query += " ORDER BY clv DESC, customer_id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CustomerResult
	for rows.Next() {
		var r CustomerResult
		if err := rows.Scan(&r.CustomerID, &r.Recency, &r.T, &r.Frequency, &r.Monetary,
			&r.PredictedPurchases, &r.ExpectedAverageProfit, &r.ProbabilityAlive, &r.CLV, &r.Segment); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetSegments returns a run's segment summaries, highest mean CLV first.
func (db *DB) GetSegments(runID string) ([]SegmentRow, error) {
	rows, err := db.conn.Query(
		`SELECT label, customers, min_clv, max_clv, mean_clv, sum_clv,
		mean_frequency, mean_monetary, mean_predicted_purchases
		FROM segment_summaries WHERE run_id = ? ORDER BY mean_clv DESC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []SegmentRow
	for rows.Next() {
		var s SegmentRow
		if err := rows.Scan(&s.Label, &s.Customers, &s.MinCLV, &s.MaxCLV, &s.MeanCLV, &s.SumCLV,
			&s.MeanFrequency, &s.MeanMonetary, &s.MeanPredictedPurchases); err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"model_params", "customer_results", "segment_summaries", "runs"} {
		col := "run_id"
		if table == "runs" {
			col = "id"
		}
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+col+" = ?", id); err != nil {
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM transactions", &s.Transactions},
		{"SELECT COUNT(DISTINCT customer_id) FROM transactions", &s.Customers},
		{"SELECT MIN(date) FROM transactions", &s.FirstDate},
		{"SELECT MAX(date) FROM transactions", &s.LastDate},
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT MAX(created_at) FROM runs", &s.LastRunAt},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (db *DB) getParams(runID string) ([]ModelParam, error) {
	rows, err := db.conn.Query(
		"SELECT model, name, value FROM model_params WHERE run_id = ? ORDER BY model, rowid", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []ModelParam
	for rows.Next() {
		var p ModelParam
		if err := rows.Scan(&p.Model, &p.Name, &p.Value); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var warnings, report *string
	if err := row.Scan(&r.ID, &r.Source, &r.ReferenceDate, &r.Customers, &r.RepeatCustomers,
		&r.RepeatRate, &r.ChurnRate, &r.TotalCLV, &warnings, &report, &r.CreatedAt); err != nil {
		return nil, err
	}
	if warnings != nil {
		if err := json.Unmarshal([]byte(*warnings), &r.Warnings); err != nil {
			return nil, fmt.Errorf("decoding warnings of run %s: %w", r.ID, err)
		}
	}
	if report != nil {
		r.ReportMarkdown = *report
	}
	return &r, nil
}
