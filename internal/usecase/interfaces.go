package usecase

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

// SourceLoader reads every source adapter's output from an input directory.
type SourceLoader interface {
	Load(ctx context.Context, dir string) ([]domain.SourceBatch, error)
}

// RateService looks up the rate converting one unit of currency into reference.
// A null rate with a nil error means the service has no rate for the pair.
type RateService interface {
	Rate(ctx context.Context, currency, reference string, date sql.NullString) (decimal.NullDecimal, error)
}

// RateCache is a persisted rate store keyed by "CURRENCY:date" or "CURRENCY:latest".
// Errors are reported but never fatal to a run.
type RateCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Put(ctx context.Context, key string, rate decimal.Decimal) error
}

// OutputWriter persists the partitions of a run.
type OutputWriter interface {
	Write(ctx context.Context, out domain.RunOutput) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// MetricsRecorder receives pipeline counters.
type MetricsRecorder interface {
	RecordStage(stage string, records int)
	RecordRateLookup(result string)
}
