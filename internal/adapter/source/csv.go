package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ParseCSV reads a headed CSV document. Empty cells and cells missing from
// short rows are null.
func ParseCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]any
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		row := make(map[string]any, len(header))
		for i, name := range header {
			if i >= len(fields) || fields[i] == "" {
				row[name] = nil
				continue
			}
			row[name] = fields[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
