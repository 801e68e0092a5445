// Package source reads transaction records from the files of an input
// directory. Each file becomes one domain.SourceBatch tagged with a source
// name; rows are mapped onto canonical field names by a Mapping.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/txpipeline/internal/domain"
)

// ParseFunc turns one source document into flattened rows.
type ParseFunc func(r io.Reader) ([]map[string]any, error)

// knownFile is a file name with a fixed source tag, loaded before all others.
type knownFile struct {
	name string
	tag  string
}

var knownFiles = []knownFile{
	{name: "transactions_storeA.csv", tag: "storeA_csv"},
	{name: "transactions_online.json", tag: "online_json"},
	{name: "transactions_partner.xml", tag: "partner_xml"},
}

var parsers = map[string]ParseFunc{
	".csv":  ParseCSV,
	".json": ParseJSON,
	".xml":  ParseXML,
}

// Loader implements usecase.SourceLoader over a local directory.
type Loader struct {
	mapping *Mapping
	logger  zerolog.Logger
}

// NewLoader creates a new Loader. A nil mapping uses DefaultMapping.
func NewLoader(mapping *Mapping, logger zerolog.Logger) *Loader {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Loader{mapping: mapping, logger: logger}
}

// Load reads the well-known files first, then every other supported file in
// name order. A missing directory yields no batches. A file that fails to
// parse is logged and skipped.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.SourceBatch, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn().Str("dir", dir).Msg("input directory does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	present := make(map[string]bool, len(entries))
	var others []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		present[e.Name()] = true
		if !isKnown(e.Name()) {
			others = append(others, e.Name())
		}
	}
	sort.Strings(others)

	type job struct{ name, tag string }
	var jobs []job
	for _, k := range knownFiles {
		if present[k.name] {
			jobs = append(jobs, job{name: k.name, tag: k.tag})
		}
	}
	for _, name := range others {
		if _, ok := parsers[strings.ToLower(filepath.Ext(name))]; !ok {
			l.logger.Debug().Str("file", name).Msg("skipping unsupported file")
			continue
		}
		jobs = append(jobs, job{name: name, tag: strings.TrimSuffix(name, filepath.Ext(name))})
	}

	batches := make([]domain.SourceBatch, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := l.LoadFile(filepath.Join(dir, j.name), j.tag)
		if err != nil {
			l.logger.Warn().Err(err).Str("file", j.name).Msg("skipping unreadable source")
			continue
		}
		l.logger.Debug().Str("file", j.name).Str("source", j.tag).Int("records", len(batch.Records)).Msg("source loaded")
		batches = append(batches, batch)
	}

	return batches, nil
}

// LoadFile parses one file by extension and maps its rows.
func (l *Loader) LoadFile(path, tag string) (domain.SourceBatch, error) {
	parse, ok := parsers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return domain.SourceBatch{}, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedSource)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.SourceBatch{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		return domain.SourceBatch{}, fmt.Errorf("%s: %w: %v", path, domain.ErrMalformedSource, err)
	}

	records := make([]domain.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, l.mapping.Apply(row))
	}

	return domain.SourceBatch{Source: tag, Records: records}, nil
}

func isKnown(name string) bool {
	for _, k := range knownFiles {
		if k.name == name {
			return true
		}
	}
	return false
}
