package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

// NopMetrics discards all pipeline metrics.
type NopMetrics struct{}

func (NopMetrics) RecordStage(string, int) {}
func (NopMetrics) RecordRateLookup(string) {}

// NopRateCache never hits and drops every write.
type NopRateCache struct{}

func (NopRateCache) Get(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Decimal{}, false, nil
}
func (NopRateCache) Put(context.Context, string, decimal.Decimal) error { return nil }

// PipelineConfig holds Pipeline dependencies.
type PipelineConfig struct {
	Loader    SourceLoader
	Converter *Converter
	Writer    OutputWriter
	IDGen     IDGenerator
	Metrics   MetricsRecorder
	Logger    zerolog.Logger
	// Threshold is the high-amount limit in the reference currency.
	Threshold decimal.Decimal
}

// RunInput represents input for one pipeline run.
type RunInput struct {
	// RunID is generated when empty.
	RunID       string
	InputDir    string
	DefaultDate sql.NullString
}

// Pipeline runs the reconciliation stages in order:
// aggregate, normalize, validate, dedupe, convert, flag, write.
type Pipeline struct {
	loader    SourceLoader
	converter *Converter
	writer    OutputWriter
	idGen     IDGenerator
	metrics   MetricsRecorder
	logger    zerolog.Logger
	threshold decimal.Decimal
}

// NewPipeline creates a new Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}

	return &Pipeline{
		loader:    cfg.Loader,
		converter: cfg.Converter,
		writer:    cfg.Writer,
		idGen:     cfg.IDGen,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		threshold: cfg.Threshold,
	}
}

// Run executes one batch. A run that loads no records returns a summary with
// Loaded == 0 and writes nothing. Only loader, rate service transport and
// writer failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context, input RunInput) (*domain.RunSummary, error) {
	runID := input.RunID
	if runID == "" {
		runID = p.idGen.Generate()
	}
	summary := &domain.RunSummary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With().Str("run_id", summary.RunID).Logger()

	batches, err := p.loader.Load(ctx, input.InputDir)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	raw := Aggregate(batches)
	summary.Loaded = len(raw)
	p.metrics.RecordStage(StageLoaded, len(raw))
	logger.Info().Int("records", len(raw)).Int("sources", len(batches)).Msg("sources aggregated")

	if len(raw) == 0 {
		summary.FinishedAt = time.Now().UTC()
		return summary, nil
	}

	normalized, stats := Normalize(raw, input.DefaultDate)
	p.metrics.RecordStage(StageNormalized, len(normalized))
	logger.Info().
		Int("records", len(normalized)).
		Int("dates_defaulted", stats.DatesDefaulted).
		Int("amounts_unparsed", stats.AmountsUnparsed).
		Msg("records normalized")

	valid, invalid := Split(normalized)
	p.metrics.RecordStage(StageValid, len(valid))
	p.metrics.RecordStage(StageInvalid, len(invalid))
	summary.Errors = len(invalid)
	logger.Info().Int("valid", len(valid)).Int("invalid", len(invalid)).Msg("records validated")

	deduped := Dedupe(valid)
	summary.Duplicates = len(valid) - len(deduped)
	p.metrics.RecordStage(StageDuplicate, summary.Duplicates)
	logger.Info().Int("records", len(deduped)).Int("duplicates", summary.Duplicates).Msg("records deduplicated")

	converted, err := p.converter.Convert(ctx, deduped)
	if err != nil {
		return nil, fmt.Errorf("convert amounts: %w", err)
	}
	summary.RatePairs = CountRatePairs(deduped)

	suspicious, clean := Flag(converted, p.threshold)
	summary.Suspicious = len(suspicious)
	summary.Clean = len(clean)
	p.metrics.RecordStage(StageSuspicious, len(suspicious))
	p.metrics.RecordStage(StageClean, len(clean))
	logger.Info().Int("clean", len(clean)).Int("suspicious", len(suspicious)).Msg("records flagged")

	summary.FinishedAt = time.Now().UTC()

	if err := p.writer.Write(ctx, domain.RunOutput{
		Summary:    *summary,
		Clean:      clean,
		Errors:     invalid,
		Suspicious: suspicious,
	}); err != nil {
		return nil, fmt.Errorf("write outputs: %w", err)
	}

	return summary, nil
}
