// Package source loads the transaction frame the engine scores.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/TobiSchelling/clvscore/internal/config"
	"github.com/TobiSchelling/clvscore/internal/database"
	"github.com/TobiSchelling/clvscore/internal/dataset"
)

// Source produces a transaction frame.
type Source interface {
	// Name identifies the source in logs and stored runs.
	Name() string
	Load(ctx context.Context) (*dataset.Frame, error)
}

// New returns the source described by cfg. store backs the local kind and
// may be nil for the others.
func New(cfg config.Source, cols dataset.Columns, store *database.DB) (Source, error) {
	switch cfg.Kind {
	case "", "local":
		if store == nil {
			return nil, fmt.Errorf("local source needs an open store")
		}
		return &Local{store: store, cols: cols}, nil
	case "csv":
		return &CSV{Path: cfg.Path}, nil
	case "mysql":
		dsn, err := toMySQLDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &SQL{Driver: "mysql", DSN: dsn, Query: queryOrDefault(cfg.Query)}, nil
	case "postgres":
		return &SQL{Driver: "postgres", DSN: cfg.DSN, Query: queryOrDefault(cfg.Query)}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

func queryOrDefault(q string) string {
	if q == "" {
		return config.DefaultQuery
	}
	return q
}

// Local reads lines previously imported into the store.
type Local struct {
	store *database.DB
	cols  dataset.Columns
}

func (l *Local) Name() string { return "local:" + l.store.Path() }

func (l *Local) Load(ctx context.Context) (*dataset.Frame, error) {
	return l.store.LoadTransactions(l.cols)
}

// CSV reads a delimited file with a header row.
type CSV struct {
	Path string
}

func (c *CSV) Name() string { return "csv:" + c.Path }

func (c *CSV) Load(ctx context.Context) (*dataset.Frame, error) {
	return dataset.LoadCSV(c.Path)
}

// SQL runs a query against a MySQL/MariaDB or PostgreSQL server.
type SQL struct {
	Driver string
	DSN    string
	Query  string
}

func (s *SQL) Name() string { return s.Driver }

func (s *SQL) Load(ctx context.Context) (*dataset.Frame, error) {
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return QueryFrame(ctx, db, s.Query)
}

// QueryFrame runs query and reads the full result into a frame.
func QueryFrame(ctx context.Context, db *sql.DB, query string, args ...any) (*dataset.Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running source query: %w", err)
	}
	defer rows.Close()
	return dataset.FromRows(rows)
}
