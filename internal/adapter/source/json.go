package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ParseJSON reads either a top-level array of objects or an object whose
// "data" member is that array. Nested objects are flattened into dotted keys.
func ParseJSON(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		data, ok := v["data"].([]any)
		if !ok {
			return nil, fmt.Errorf("object without a data array")
		}
		items = data
	default:
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}

	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, not an object", i, item)
		}
		row := make(map[string]any, len(obj))
		flattenJSON("", obj, row)
		rows = append(rows, row)
	}

	return rows, nil
}

func flattenJSON(prefix string, obj map[string]any, out map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case map[string]any:
			flattenJSON(key, val, out)
		case []any:
			var buf bytes.Buffer
			if err := json.NewEncoder(&buf).Encode(val); err == nil {
				out[key] = string(bytes.TrimSpace(buf.Bytes()))
			}
		default:
			out[key] = val
		}
	}
}
