// Package file persists exchange rates in a local JSON document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultPath is the cache file used when none is configured.
const DefaultPath = ".fx_cache.json"

// RateCache implements usecase.RateCache on a JSON object mapping
// "CUR:date" keys to numeric rates. The document is read once and
// rewritten after every Put.
type RateCache struct {
	path   string
	logger zerolog.Logger

	mu     sync.Mutex
	loaded bool
	rates  map[string]json.Number
}

// NewRateCache creates a new RateCache backed by path.
func NewRateCache(path string, logger zerolog.Logger) *RateCache {
	if path == "" {
		path = DefaultPath
	}
	return &RateCache{path: path, logger: logger}
}

// Path returns the backing file path.
func (c *RateCache) Path() string {
	return c.path
}

func (c *RateCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()

	n, ok := c.rates[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	rate, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cached rate %s: %w", key, err)
	}
	return rate, true, nil
}

func (c *RateCache) Put(_ context.Context, key string, rate decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	c.rates[key] = json.Number(rate.String())

	return c.save()
}

// load reads the document on first use. A missing or unreadable file
// starts an empty cache.
func (c *RateCache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.rates = make(map[string]json.Number)

	b, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("rate cache unreadable, starting empty")
		return
	}

	var rates map[string]json.Number
	if err := json.Unmarshal(b, &rates); err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("rate cache corrupt, starting empty")
		return
	}
	if rates != nil {
		c.rates = rates
	}
}

func (c *RateCache) save() error {
	b, err := json.MarshalIndent(c.rates, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rate cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".fx_cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create rate cache: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write rate cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close rate cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace rate cache: %w", err)
	}
	return nil
}
