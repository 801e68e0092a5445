// Package output writes the partitions of a pipeline run to the output
// directory and hands them to any configured stores and mirrors.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/iho/txpipeline/internal/domain"
)

// Artifact file names inside the output directory.
const (
	CleanCSV      = "clean_transactions.csv"
	ErrorsCSV     = "errors.csv"
	SuspiciousCSV = "suspicious.csv"
	CleanParquet  = "clean_transactions.parquet"
)

// Store persists the clean set and the run summary.
type Store interface {
	Name() string
	SaveRun(ctx context.Context, out domain.RunOutput) error
}

// Mirror copies finished artifact files elsewhere.
type Mirror interface {
	Upload(ctx context.Context, runID string, paths []string) error
}

// Config holds Writer dependencies. Stores and Mirror are optional.
type Config struct {
	OutDir string
	Stores []Store
	Mirror Mirror
	Logger zerolog.Logger
}

// Writer implements usecase.OutputWriter.
type Writer struct {
	outDir string
	stores []Store
	mirror Mirror
	logger zerolog.Logger
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config) *Writer {
	return &Writer{
		outDir: cfg.OutDir,
		stores: cfg.Stores,
		mirror: cfg.Mirror,
		logger: cfg.Logger,
	}
}

// Write produces the CSV and Parquet artifacts, then saves the run to each
// store in order and finally mirrors the artifacts. The first failure aborts.
func (w *Writer) Write(ctx context.Context, out domain.RunOutput) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	files := []struct {
		name    string
		records []domain.Transaction
		tail    string
	}{
		{CleanCSV, out.Clean, domain.FieldAmountUSD},
		{ErrorsCSV, out.Errors, domain.FieldErrorReason},
		{SuspiciousCSV, out.Suspicious, domain.FieldAmountUSD},
	}

	paths := make([]string, 0, len(files)+1)
	for _, f := range files {
		path := filepath.Join(w.outDir, f.name)
		if err := WriteCSV(path, f.records, f.tail); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	parquetPath := filepath.Join(w.outDir, CleanParquet)
	if err := WriteParquet(parquetPath, out.Clean); err != nil {
		return err
	}
	paths = append(paths, parquetPath)

	w.logger.Info().
		Str("out_dir", w.outDir).
		Int("clean", len(out.Clean)).
		Int("errors", len(out.Errors)).
		Int("suspicious", len(out.Suspicious)).
		Msg("artifacts written")

	for _, s := range w.stores {
		if err := s.SaveRun(ctx, out); err != nil {
			return fmt.Errorf("save run to %s: %w", s.Name(), err)
		}
		w.logger.Info().Str("store", s.Name()).Msg("run saved")
	}

	if w.mirror != nil {
		if err := w.mirror.Upload(ctx, out.Summary.RunID, paths); err != nil {
			return fmt.Errorf("mirror artifacts: %w", err)
		}
	}

	return nil
}
