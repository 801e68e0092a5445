package domain

import (
	"database/sql"
	"sort"

	"github.com/shopspring/decimal"
)

// Canonical field names.
const (
	FieldTransactionID  = "transaction_id"
	FieldSource         = "source"
	FieldTimestamp      = "timestamp"
	FieldCustomerID     = "customer_id"
	FieldAmountOriginal = "amount_original"
	FieldCurrency       = "currency"
	FieldPaymentMethod  = "payment_method"
	FieldStatus         = "status"
	FieldAmountUSD      = "amount_usd"
	FieldErrorReason    = "error_reason"
)

// BaseFields is the canonical column set in output order.
var BaseFields = []string{
	FieldTransactionID,
	FieldSource,
	FieldTimestamp,
	FieldCustomerID,
	FieldAmountOriginal,
	FieldCurrency,
	FieldPaymentMethod,
	FieldStatus,
}

// RequiredFields must be present and non-blank on a valid record, in reporting order.
var RequiredFields = []string{
	FieldTransactionID,
	FieldTimestamp,
	FieldCustomerID,
	FieldAmountOriginal,
	FieldCurrency,
	FieldSource,
}

// IsBaseField reports whether name is one of the canonical column names.
func IsBaseField(name string) bool {
	for _, f := range BaseFields {
		if f == name {
			return true
		}
	}
	return name == FieldAmountUSD || name == FieldErrorReason
}

// RawRecord is a source adapter row keyed by canonical field names plus any
// pass-through extras. Values are left untyped until normalization.
type RawRecord map[string]any

// SourceBatch is the output of one source adapter.
type SourceBatch struct {
	Source  string
	Records []RawRecord
}

// Transaction is a normalized transaction record.
type Transaction struct {
	TransactionID  sql.NullString
	Source         sql.NullString
	Timestamp      sql.NullString // ISO calendar date or the caller's default date
	CustomerID     sql.NullString
	AmountOriginal decimal.NullDecimal
	Currency       sql.NullString
	PaymentMethod  sql.NullString
	Status         sql.NullString

	// AmountUSD is the reference-currency amount. Converted is set on every
	// record that went through conversion, regardless of the outcome.
	AmountUSD decimal.NullDecimal
	Converted bool

	ErrorReason string
	Extra       map[string]string
}

// Value returns the string form of a canonical field and whether it is non-null.
func (t Transaction) Value(field string) (string, bool) {
	switch field {
	case FieldTransactionID:
		return t.TransactionID.String, t.TransactionID.Valid
	case FieldSource:
		return t.Source.String, t.Source.Valid
	case FieldTimestamp:
		return t.Timestamp.String, t.Timestamp.Valid
	case FieldCustomerID:
		return t.CustomerID.String, t.CustomerID.Valid
	case FieldAmountOriginal:
		return decimalString(t.AmountOriginal)
	case FieldCurrency:
		return t.Currency.String, t.Currency.Valid
	case FieldPaymentMethod:
		return t.PaymentMethod.String, t.PaymentMethod.Valid
	case FieldStatus:
		return t.Status.String, t.Status.Valid
	case FieldAmountUSD:
		return decimalString(t.AmountUSD)
	case FieldErrorReason:
		return t.ErrorReason, t.ErrorReason != ""
	}
	v, ok := t.Extra[field]
	return v, ok
}

// Clone returns a copy that shares no mutable state with t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Extra != nil {
		c.Extra = make(map[string]string, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Raw converts the record back into adapter form. Normalizing the result
// yields the same record.
func (t Transaction) Raw() RawRecord {
	raw := make(RawRecord, len(BaseFields)+len(t.Extra))
	for _, f := range BaseFields {
		if v, ok := t.Value(f); ok {
			raw[f] = v
		} else {
			raw[f] = nil
		}
	}
	for k, v := range t.Extra {
		raw[k] = v
	}
	return raw
}

// ExtraColumns returns the sorted union of extra field names across records.
func ExtraColumns(records []Transaction) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Extra {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Columns returns the output column order for records: the base fields,
// the sorted extras, then tail.
func Columns(records []Transaction, tail ...string) []string {
	extras := ExtraColumns(records)
	cols := make([]string, 0, len(BaseFields)+len(extras)+len(tail))
	cols = append(cols, BaseFields...)
	cols = append(cols, extras...)
	return append(cols, tail...)
}

func decimalString(d decimal.NullDecimal) (string, bool) {
	if !d.Valid {
		return "", false
	}
	return d.Decimal.String(), true
}
