package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryRateCache is an in-memory implementation of RateCache.
type MemoryRateCache struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal

	GetFunc func(ctx context.Context, key string) (decimal.Decimal, bool, error)
	PutFunc func(ctx context.Context, key string, rate decimal.Decimal) error
}

func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{
		rates: make(map[string]decimal.Decimal),
	}
}

func (c *MemoryRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	if c.GetFunc != nil {
		return c.GetFunc(ctx, key)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok := c.rates[key]
	return rate, ok, nil
}

func (c *MemoryRateCache) Put(ctx context.Context, key string, rate decimal.Decimal) error {
	if c.PutFunc != nil {
		return c.PutFunc(ctx, key, rate)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[key] = rate
	return nil
}

// Len returns the number of cached rates.
func (c *MemoryRateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rates)
}

// SequenceIDGenerator returns run-1, run-2, ...
type SequenceIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewSequenceIDGenerator() *SequenceIDGenerator {
	return &SequenceIDGenerator{}
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("run-%d", g.counter)
}

// RecordingMetrics keeps the last value recorded per stage and counts rate lookups.
type RecordingMetrics struct {
	mu      sync.Mutex
	Stages  map[string]int
	Lookups map[string]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Stages:  make(map[string]int),
		Lookups: make(map[string]int),
	}
}

func (m *RecordingMetrics) RecordStage(stage string, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages[stage] = records
}

func (m *RecordingMetrics) RecordRateLookup(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups[result]++
}
