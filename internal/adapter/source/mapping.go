package source

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iho/txpipeline/internal/domain"
)

//go:embed mapping.yaml
var defaultMapping []byte

// Mapping resolves source column names to canonical field names.
type Mapping struct {
	Fields map[string][]string `yaml:"fields"`
}

// DefaultMapping returns the built-in alias table.
func DefaultMapping() *Mapping {
	m, err := parseMapping(defaultMapping)
	if err != nil {
		panic(fmt.Sprintf("source: embedded mapping: %v", err))
	}
	return m
}

// LoadMapping reads an alias table from path. Canonical fields the file does
// not mention keep their built-in aliases. An empty path returns the default.
func LoadMapping(path string) (*Mapping, error) {
	base := DefaultMapping()
	if path == "" {
		return base, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	override, err := parseMapping(b)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}

	for field, aliases := range override.Fields {
		base.Fields[field] = aliases
	}
	return base, nil
}

func parseMapping(b []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.Fields == nil {
		m.Fields = make(map[string][]string)
	}
	for field, aliases := range m.Fields {
		if !domain.IsBaseField(field) {
			return nil, fmt.Errorf("unknown field %q", field)
		}
		if field == domain.FieldSource {
			return nil, fmt.Errorf("field %q is assigned by the loader and cannot be mapped", field)
		}
		for i, a := range aliases {
			aliases[i] = normalizeColumn(a)
		}
	}
	return &m, nil
}

// Apply maps one flattened source row onto canonical field names. Columns
// no alias consumed are kept under their normalized names.
func (m *Mapping) Apply(row map[string]any) domain.RawRecord {
	cols := make(map[string]any, len(row))
	for k, v := range row {
		cols[normalizeColumn(k)] = v
	}

	out := make(domain.RawRecord, len(cols))
	used := make(map[string]struct{}, len(cols))

	for _, field := range domain.BaseFields {
		for _, alias := range m.Fields[field] {
			v, ok := cols[alias]
			if !ok {
				continue
			}
			out[field] = v
			used[alias] = struct{}{}
			break
		}
	}

	for k, v := range cols {
		if _, ok := used[k]; ok {
			continue
		}
		if _, taken := out[k]; taken {
			continue
		}
		out[k] = v
	}

	return out
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
