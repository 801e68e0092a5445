package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

// Flag partitions records into suspicious and clean. Once conversion has run
// on the set, a record is suspicious iff its amount_usd is negative or above
// threshold; records with a null amount_usd are clean. Without conversion only
// a negative amount_original is suspicious.
func Flag(records []domain.Transaction, threshold decimal.Decimal) (suspicious, clean []domain.Transaction) {
	converted := false
	for _, rec := range records {
		if rec.Converted {
			converted = true
			break
		}
	}

	suspicious = make([]domain.Transaction, 0)
	clean = make([]domain.Transaction, 0, len(records))

	for _, rec := range records {
		if isSuspicious(rec, converted, threshold) {
			suspicious = append(suspicious, rec.Clone())
		} else {
			clean = append(clean, rec.Clone())
		}
	}

	return suspicious, clean
}

func isSuspicious(rec domain.Transaction, converted bool, threshold decimal.Decimal) bool {
	if converted {
		if !rec.AmountUSD.Valid {
			return false
		}
		return rec.AmountUSD.Decimal.IsNegative() || rec.AmountUSD.Decimal.GreaterThan(threshold)
	}

	return rec.AmountOriginal.Valid && rec.AmountOriginal.Decimal.IsNegative()
}
