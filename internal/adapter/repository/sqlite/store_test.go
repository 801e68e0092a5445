package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

func text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func runOutput(runID string, clean ...domain.Transaction) domain.RunOutput {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return domain.RunOutput{
		Summary: domain.RunSummary{RunID: runID, Loaded: len(clean), Clean: len(clean), StartedAt: now, FinishedAt: now},
		Clean:   clean,
	}
}

func TestStoreSaveRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domain.Transaction{
		TransactionID:  text("1"),
		Source:         text("storeA_csv"),
		AmountOriginal: decimal.NewNullDecimal(decimal.RequireFromString("10.5")),
		Currency:       text("EUR"),
		AmountUSD:      decimal.NewNullDecimal(decimal.RequireFromString("11.55")),
		Extra:          map[string]string{`odd "name"`: "x"},
	}
	if err := store.SaveRun(ctx, runOutput("run-1", first)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var id, extra string
	var usd float64
	var status sql.NullString
	row := store.db.QueryRowContext(ctx, `SELECT transaction_id, amount_usd, status, "odd ""name""" FROM transactions`)
	if err := row.Scan(&id, &usd, &status, &extra); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if id != "1" || usd != 11.55 || status.Valid || extra != "x" {
		t.Fatalf("unexpected row id=%s usd=%v status=%+v extra=%s", id, usd, status, extra)
	}

	second := domain.Transaction{TransactionID: text("2"), Source: text("online_json")}
	if err := store.SaveRun(ctx, runOutput("run-2", second)); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected transactions to be replaced, got %d rows", count)
	}

	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pipeline_runs`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 runs, got %d", count)
	}
}

func TestStoreSaveRunEmpty(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveRun(context.Background(), runOutput("run-1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("transactions table missing: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}

func TestStoreDuplicateRunRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, runOutput("run-1", domain.Transaction{TransactionID: text("1")})); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveRun(ctx, runOutput("run-1", domain.Transaction{TransactionID: text("2")})); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}

	var id string
	if err := store.db.QueryRow(`SELECT transaction_id FROM transactions`).Scan(&id); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if id != "1" {
		t.Fatalf("expected rollback to keep previous table, got id %s", id)
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
