package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

var copyColumns = []string{
	"transaction_id", "source", "timestamp", "customer_id", "amount_original",
	"currency", "payment_method", "status", "extra", "amount_usd", "run_id",
}

// TransactionStore implements output.Store on a shared PostgreSQL database.
// Each run replaces the transactions table contents and appends to
// pipeline_runs in a single transaction.
type TransactionStore struct {
	tx      *TxManager
	retrier *Retrier
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(tx *TxManager, retrier *Retrier) *TransactionStore {
	return &TransactionStore{tx: tx, retrier: retrier}
}

func (s *TransactionStore) Name() string { return "postgres" }

// SaveRun loads out.Clean with COPY and records the run summary.
func (s *TransactionStore) SaveRun(ctx context.Context, out domain.RunOutput) error {
	return s.retrier.Retry(ctx, "save run", func() error {
		return s.tx.WithTx(ctx, func(tx pgx.Tx) error {
			return saveRun(ctx, tx, out)
		})
	})
}

func saveRun(ctx context.Context, tx pgx.Tx, out domain.RunOutput) error {
	if _, err := tx.Exec(ctx, `TRUNCATE transactions`); err != nil {
		return fmt.Errorf("truncate transactions: %w", err)
	}

	runID := out.Summary.RunID
	rows := make([][]any, 0, len(out.Clean))
	for _, rec := range out.Clean {
		extra := rec.Extra
		if extra == nil {
			extra = map[string]string{}
		}
		rows = append(rows, []any{
			toText(rec.TransactionID.String, rec.TransactionID.Valid),
			toText(rec.Source.String, rec.Source.Valid),
			toText(rec.Timestamp.String, rec.Timestamp.Valid),
			toText(rec.CustomerID.String, rec.CustomerID.Valid),
			decimalToNumeric(rec.AmountOriginal),
			toText(rec.Currency.String, rec.Currency.Valid),
			toText(rec.PaymentMethod.String, rec.PaymentMethod.Valid),
			toText(rec.Status.String, rec.Status.Valid),
			extra,
			decimalToNumeric(rec.AmountUSD),
			runID,
		})
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy transactions: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy transactions: wrote %d of %d rows", n, len(rows))
	}

	sum := out.Summary
	_, err = tx.Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, loaded, errors, duplicates, clean, suspicious, rate_pairs,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		sum.RunID, sum.Loaded, sum.Errors, sum.Duplicates, sum.Clean, sum.Suspicious, sum.RatePairs,
		pgtype.Timestamptz{Time: sum.StartedAt, Valid: true},
		pgtype.Timestamptz{Time: sum.FinishedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}

	return nil
}

func toText(s string, valid bool) pgtype.Text {
	return pgtype.Text{String: s, Valid: valid}
}

// decimalToNumeric maps coefficient and exponent one to one, so no precision
// is lost and no conversion can fail.
func decimalToNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{
		Int:   d.Decimal.Coefficient(),
		Exp:   d.Decimal.Exponent(),
		Valid: true,
	}
}
