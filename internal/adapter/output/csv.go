package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/iho/txpipeline/internal/domain"
)

// WriteCSV writes records to path with a header row. Columns are the base
// fields, the sorted extras and then tail. Null values are empty cells.
func WriteCSV(path string, records []domain.Transaction, tail string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := writeCSV(f, records, tail); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeCSV(f *os.File, records []domain.Transaction, tail string) error {
	cols := domain.Columns(records, tail)

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for _, rec := range records {
		for i, col := range cols {
			row[i], _ = rec.Value(col)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
