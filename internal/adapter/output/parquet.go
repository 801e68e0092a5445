package output

import (
	"bytes"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"

	"github.com/iho/txpipeline/internal/domain"
)

// WriteParquet writes records to path as a single row group. Amount
// columns are float64; every other column is a nullable string.
func WriteParquet(path string, records []domain.Transaction) error {
	cols := domain.Columns(records, domain.FieldAmountUSD)
	schema := parquetSchema(cols)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for _, rec := range records {
		for i, col := range cols {
			switch fb := b.Field(i).(type) {
			case *array.Float64Builder:
				d := rec.AmountOriginal
				if col == domain.FieldAmountUSD {
					d = rec.AmountUSD
				}
				if !d.Valid {
					fb.AppendNull()
					continue
				}
				f, _ := d.Decimal.Float64()
				fb.Append(f)
			case *array.StringBuilder:
				v, ok := rec.Value(col)
				if !ok {
					fb.AppendNull()
					continue
				}
				fb.Append(v)
			}
		}
	}

	batch := b.NewRecord()
	defer batch.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	w, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	if batch.NumRows() > 0 {
		if err := w.Write(batch); err != nil {
			w.Close()
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parquetSchema(cols []string) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if col == domain.FieldAmountOriginal || col == domain.FieldAmountUSD {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[i] = arrow.Field{Name: col, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
