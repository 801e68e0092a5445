// Package sqlite writes the clean set and run history to a SQLite file in
// the output directory.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iho/txpipeline/internal/domain"
)

// FileName is the database file created in the output directory.
const FileName = "transactions.sqlite"

// Store implements output.Store. The transactions table is replaced on
// every run; pipeline_runs accumulates one row per run.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun replaces the transactions table with out.Clean and records the
// run summary, in one transaction.
func (s *Store) SaveRun(ctx context.Context, out domain.RunOutput) (err error) {
	cols := domain.Columns(out.Clean, domain.FieldAmountUSD)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS transactions`); err != nil {
		return fmt.Errorf("drop transactions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, createTransactionsSQL(cols)); err != nil {
		return fmt.Errorf("create transactions: %w", err)
	}

	if len(out.Clean) > 0 {
		if err = insertTransactions(ctx, tx, cols, out.Clean); err != nil {
			return err
		}
	}

	sum := out.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			run_id, loaded, errors, duplicates, clean, suspicious, rate_pairs,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sum.RunID, sum.Loaded, sum.Errors, sum.Duplicates, sum.Clean, sum.Suspicious, sum.RatePairs,
		sum.StartedAt.UTC().Format(time.RFC3339Nano), sum.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}

	return tx.Commit()
}

func insertTransactions(ctx context.Context, tx *sql.Tx, cols []string, records []domain.Transaction) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO transactions (%s) VALUES (%s)`, quoteColumns(cols), placeholders,
	))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, rec := range records {
		for i, col := range cols {
			args[i] = columnValue(rec, col)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert transaction %s: %w", rec.TransactionID.String, err)
		}
	}
	return nil
}

func columnValue(rec domain.Transaction, col string) any {
	switch col {
	case domain.FieldAmountOriginal, domain.FieldAmountUSD:
		d := rec.AmountOriginal
		if col == domain.FieldAmountUSD {
			d = rec.AmountUSD
		}
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	v, ok := rec.Value(col)
	if !ok {
		return nil
	}
	return v
}

func createTransactionsSQL(cols []string) string {
	defs := make([]string, len(cols))
	for i, col := range cols {
		typ := "TEXT"
		if col == domain.FieldAmountOriginal || col == domain.FieldAmountUSD {
			typ = "REAL"
		}
		defs[i] = quoteIdent(col) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE transactions (%s)", strings.Join(defs, ", "))
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			loaded INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			clean INTEGER NOT NULL,
			suspicious INTEGER NOT NULL,
			rate_pairs INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
