package usecase

import (
	"sort"

	"github.com/iho/txpipeline/internal/domain"
)

// Dedupe keeps one record per transaction_id: the first under ascending
// (transaction_id, source) order, null sources last. The survivor is
// therefore the lexicographically smallest source tag, not the most recent
// or most complete record. Output is in that sort order.
func Dedupe(records []domain.Transaction) []domain.Transaction {
	sorted := make([]domain.Transaction, len(records))
	for i, rec := range records {
		sorted[i] = rec.Clone()
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TransactionID.String != b.TransactionID.String {
			return a.TransactionID.String < b.TransactionID.String
		}
		if a.Source.Valid != b.Source.Valid {
			return a.Source.Valid
		}
		return a.Source.String < b.Source.String
	})

	out := make([]domain.Transaction, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, rec := range sorted {
		if _, dup := seen[rec.TransactionID.String]; dup {
			continue
		}
		seen[rec.TransactionID.String] = struct{}{}
		out = append(out, rec)
	}

	return out
}
