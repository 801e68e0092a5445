package usecase

import "github.com/iho/txpipeline/internal/domain"

// Split partitions records into structurally valid and invalid sets. Every
// invalid record carries its joined reasons in ErrorReason. Input records
// are not modified.
func Split(records []domain.Transaction) (valid, invalid []domain.Transaction) {
	valid = make([]domain.Transaction, 0, len(records))
	invalid = make([]domain.Transaction, 0)

	for _, rec := range records {
		reason := domain.ErrorReason(rec)
		if reason == "" {
			valid = append(valid, rec.Clone())
			continue
		}
		bad := rec.Clone()
		bad.ErrorReason = reason
		invalid = append(invalid, bad)
	}

	return valid, invalid
}
