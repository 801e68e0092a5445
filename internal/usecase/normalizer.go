package usecase

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

const isoDate = "2006-01-02"

// Parsed dates outside [minDateYear, maxDateYear] are treated as unparseable.
const (
	minDateYear = 1900
	maxDateYear = 2100
)

// dayFirstLayouts are tried when the permissive parser fails or yields an
// implausible date.
var dayFirstLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
}

// NormalizeStats counts values that could not be coerced and were degraded.
type NormalizeStats struct {
	DatesDefaulted  int
	AmountsUnparsed int
}

// Normalize coerces every raw record to the canonical types. Null
// identifiers stay null instead of being stringified, so the validator's
// missing-field check sees them. Unparseable timestamps take defaultDate
// verbatim; unparseable amounts become null.
func Normalize(records []domain.RawRecord, defaultDate sql.NullString) ([]domain.Transaction, NormalizeStats) {
	var stats NormalizeStats
	out := make([]domain.Transaction, 0, len(records))

	for _, raw := range records {
		tx := domain.Transaction{
			TransactionID: coerceText(raw[domain.FieldTransactionID]),
			Source:        coerceText(raw[domain.FieldSource]),
			CustomerID:    coerceText(raw[domain.FieldCustomerID]),
			Currency:      coerceCurrency(raw[domain.FieldCurrency]),
			PaymentMethod: coerceText(raw[domain.FieldPaymentMethod]),
			Status:        coerceText(raw[domain.FieldStatus]),
		}

		if date, ok := CoerceDate(raw[domain.FieldTimestamp]); ok {
			tx.Timestamp = sql.NullString{String: date, Valid: true}
		} else {
			tx.Timestamp = defaultDate
			stats.DatesDefaulted++
		}

		if amt, ok := CoerceAmount(raw[domain.FieldAmountOriginal]); ok {
			tx.AmountOriginal = decimal.NewNullDecimal(amt)
		} else {
			stats.AmountsUnparsed++
		}

		for k, v := range raw {
			if domain.IsBaseField(k) {
				continue
			}
			if tx.Extra == nil {
				tx.Extra = make(map[string]string)
			}
			s, _ := stringify(v)
			tx.Extra[k] = s
		}

		out = append(out, tx)
	}

	return out, stats
}

// CoerceDate parses v with a permissive date parser and returns it as an
// ISO calendar date. Ambiguous numeric dates are month first unless the
// month would be out of range; dotted dates are day first. Null, blank and
// "none" values are not parsed, and results without a plausible year
// (time-only strings, epoch-like numbers) count as unparseable.
func CoerceDate(v any) (string, bool) {
	s, ok := stringify(v)
	s = strings.TrimSpace(s)
	if !ok || s == "" || strings.ToLower(s) == "none" {
		return "", false
	}

	t, err := dateparse.ParseAny(s, dateparse.RetryAmbiguousDateWithSwap(true))
	if err == nil && plausibleYear(t) {
		return t.Format(isoDate), true
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil && plausibleYear(t) {
			return t.Format(isoDate), true
		}
	}

	return "", false
}

func plausibleYear(t time.Time) bool {
	return t.Year() >= minDateYear && t.Year() <= maxDateYear
}

// CoerceAmount parses v as a decimal after removing thousands separators,
// a leading or trailing "$" and surrounding whitespace.
func CoerceAmount(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	}

	s, _ := stringify(v)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

func coerceText(v any) sql.NullString {
	s, ok := stringify(v)
	return sql.NullString{String: s, Valid: ok}
}

func coerceCurrency(v any) sql.NullString {
	s, ok := stringify(v)
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.ToUpper(strings.TrimSpace(s)), Valid: true}
}

// stringify returns the string representation of an adapter value, false for null.
func stringify(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	case fmt.Stringer:
		return s.String(), true
	}
	return fmt.Sprint(v), true
}
