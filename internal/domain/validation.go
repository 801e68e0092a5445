package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Validation reasons
const (
	ReasonMissingPrefix    = "Missing: "
	ReasonAmountNotNumeric = "Amount not numeric"
	ReasonAmountTooLarge   = "Amount too large"
	ReasonCurrencyFormat   = "Currency not 3-letter code"

	reasonSeparator = "; "
)

// Validation constants
const (
	CurrencyCodeLength = 3
)

// MaxAmountMagnitude is the largest absolute original amount accepted.
var MaxAmountMagnitude = decimal.NewFromInt(1_000_000_000)

// MissingFields lists the required fields of t that are null or blank.
func MissingFields(t Transaction) []string {
	var missing []string
	for _, f := range RequiredFields {
		v, ok := t.Value(f)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// ValidationIssues returns every structural problem found on t. All checks
// run; none short-circuits another.
func ValidationIssues(t Transaction) []string {
	var reasons []string

	if missing := MissingFields(t); len(missing) > 0 {
		reasons = append(reasons, ReasonMissingPrefix+strings.Join(missing, ","))
	}

	if !t.AmountOriginal.Valid {
		reasons = append(reasons, ReasonAmountNotNumeric)
	} else if t.AmountOriginal.Decimal.Abs().GreaterThan(MaxAmountMagnitude) {
		reasons = append(reasons, ReasonAmountTooLarge)
	}

	currency := strings.ToUpper(strings.TrimSpace(t.Currency.String))
	if len([]rune(currency)) != CurrencyCodeLength {
		reasons = append(reasons, ReasonCurrencyFormat)
	}

	return reasons
}

// ErrorReason joins the validation issues of t, empty when t is valid.
func ErrorReason(t Transaction) string {
	return strings.Join(ValidationIssues(t), reasonSeparator)
}
