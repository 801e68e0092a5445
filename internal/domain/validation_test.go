package domain

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func text(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func amount(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func validTransaction() Transaction {
	return Transaction{
		TransactionID:  text("T1"),
		Source:         text("storeA_csv"),
		Timestamp:      text("2025-08-31"),
		CustomerID:     text("C1"),
		AmountOriginal: amount("12.50"),
		Currency:       text("EUR"),
	}
}

func TestValidationIssues(t *testing.T) {
	t.Parallel()

	t.Run("valid record", func(t *testing.T) {
		if got := ErrorReason(validTransaction()); got != "" {
			t.Fatalf("expected no reasons, got %q", got)
		}
	})

	t.Run("missing transaction id", func(t *testing.T) {
		tx := validTransaction()
		tx.TransactionID = sql.NullString{}
		if got := ErrorReason(tx); got != "Missing: transaction_id" {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("blank fields are missing in required order", func(t *testing.T) {
		tx := validTransaction()
		tx.Source = text("  ")
		tx.CustomerID = text("")
		got := ErrorReason(tx)
		if got != "Missing: customer_id,source" {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("null amount is missing and not numeric", func(t *testing.T) {
		tx := validTransaction()
		tx.AmountOriginal = decimal.NullDecimal{}
		got := ErrorReason(tx)
		if got != "Missing: amount_original; Amount not numeric" {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("amount too large", func(t *testing.T) {
		tx := validTransaction()
		tx.AmountOriginal = amount("-1000000000.01")
		if got := ErrorReason(tx); got != ReasonAmountTooLarge {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("amount at limit is accepted", func(t *testing.T) {
		tx := validTransaction()
		tx.AmountOriginal = amount("1000000000")
		if got := ErrorReason(tx); got != "" {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("currency length", func(t *testing.T) {
		for _, code := range []string{"EU", "EURO", "NONE"} {
			tx := validTransaction()
			tx.Currency = text(code)
			if got := ErrorReason(tx); got != ReasonCurrencyFormat {
				t.Fatalf("currency %q: unexpected reason %q", code, got)
			}
		}
	})

	t.Run("null currency collects both reasons", func(t *testing.T) {
		tx := validTransaction()
		tx.Currency = sql.NullString{}
		got := ErrorReason(tx)
		if got != "Missing: currency; Currency not 3-letter code" {
			t.Fatalf("unexpected reason %q", got)
		}
	})

	t.Run("everything missing", func(t *testing.T) {
		got := ErrorReason(Transaction{})
		want := "Missing: " + strings.Join(RequiredFields, ",") + "; Amount not numeric; Currency not 3-letter code"
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})
}

func TestTransactionRawRoundTrip(t *testing.T) {
	t.Parallel()

	tx := validTransaction()
	tx.Extra = map[string]string{"store": "A"}

	raw := tx.Raw()
	if raw[FieldAmountOriginal] != "12.5" {
		t.Fatalf("expected amount string 12.5, got %v", raw[FieldAmountOriginal])
	}
	if raw[FieldPaymentMethod] != nil {
		t.Fatalf("expected nil payment method, got %v", raw[FieldPaymentMethod])
	}
	if raw["store"] != "A" {
		t.Fatalf("expected extra to be carried, got %v", raw["store"])
	}
}

func TestClone(t *testing.T) {
	t.Parallel()

	tx := validTransaction()
	tx.Extra = map[string]string{"k": "v"}

	c := tx.Clone()
	c.Extra["k"] = "changed"

	if tx.Extra["k"] != "v" {
		t.Fatalf("clone shares extras with original")
	}
}

func TestExtraColumns(t *testing.T) {
	t.Parallel()

	cols := ExtraColumns([]Transaction{
		{Extra: map[string]string{"b": "1", "a": "2"}},
		{Extra: map[string]string{"c": "3", "a": "4"}},
		{},
	})

	if strings.Join(cols, ",") != "a,b,c" {
		t.Fatalf("unexpected columns %v", cols)
	}
}

func TestColumns(t *testing.T) {
	t.Parallel()

	cols := Columns([]Transaction{{Extra: map[string]string{"region": "n"}}}, FieldAmountUSD)

	want := "transaction_id,source,timestamp,customer_id,amount_original,currency,payment_method,status,region,amount_usd"
	if strings.Join(cols, ",") != want {
		t.Fatalf("unexpected columns %v", cols)
	}
}
