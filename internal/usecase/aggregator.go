package usecase

import "github.com/iho/txpipeline/internal/domain"

// Aggregate concatenates adapter batches into one record set. Every record
// is tagged with its batch's source, replacing any source column the file
// carried. Order within a batch is preserved.
func Aggregate(batches []domain.SourceBatch) []domain.RawRecord {
	total := 0
	for _, b := range batches {
		total += len(b.Records)
	}

	out := make([]domain.RawRecord, 0, total)
	for _, b := range batches {
		for _, rec := range b.Records {
			row := make(domain.RawRecord, len(rec)+1)
			for k, v := range rec {
				row[k] = v
			}
			row[domain.FieldSource] = b.Source
			out = append(out, row)
		}
	}

	return out
}
