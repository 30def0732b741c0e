package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    date TEXT NOT NULL,
    unit_price REAL NOT NULL,
    quantity REAL NOT NULL,
    imported_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    reference_date TEXT NOT NULL,
    customers INTEGER DEFAULT 0,
    repeat_customers INTEGER DEFAULT 0,
    repeat_rate REAL DEFAULT 0,
    churn_rate REAL DEFAULT 0,
    total_clv REAL DEFAULT 0,
    warnings TEXT,
    report_markdown TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS customer_results (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    customer_id TEXT NOT NULL,
    recency REAL NOT NULL,
    t REAL NOT NULL,
    frequency REAL NOT NULL,
    monetary REAL NOT NULL,
    predicted_purchases REAL NOT NULL,
    expected_average_profit REAL NOT NULL,
    probability_alive REAL NOT NULL,
    clv REAL NOT NULL,
    segment TEXT NOT NULL,
    PRIMARY KEY (run_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id);
CREATE INDEX IF NOT EXISTS idx_customer_results_segment ON customer_results(run_id, segment);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "model parameters and segment summaries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS model_params (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    model TEXT NOT NULL,
    name TEXT NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (run_id, model, name)
);

CREATE TABLE IF NOT EXISTS segment_summaries (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    customers INTEGER NOT NULL,
    min_clv REAL NOT NULL,
    max_clv REAL NOT NULL,
    mean_clv REAL NOT NULL,
    sum_clv REAL NOT NULL,
    mean_frequency REAL NOT NULL,
    mean_monetary REAL NOT NULL,
    mean_predicted_purchases REAL NOT NULL,
    PRIMARY KEY (run_id, label)
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
