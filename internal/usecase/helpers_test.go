package usecase_test

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

func text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func tx(id, source, currency, amt, date string) domain.Transaction {
	return domain.Transaction{
		TransactionID:  text(id),
		Source:         text(source),
		Timestamp:      text(date),
		CustomerID:     text("C1"),
		AmountOriginal: amount(amt),
		Currency:       text(currency),
		PaymentMethod:  text("card"),
		Status:         text("completed"),
	}
}

func ids(records []domain.Transaction) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TransactionID.String
	}
	return out
}
