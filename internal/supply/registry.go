// Package supply provides the registry for static per-symbol reference data.
package supply

import (
	"context"
	"log"
	"os"
	"time"

	"oi-radar/internal/domain"
	"oi-radar/internal/observability"
	"oi-radar/internal/storage"
)

// DefaultFetchTimeout bounds a single reference fetch, independent of any
// caching above it.
const DefaultFetchTimeout = 10 * time.Second

// Registry fetches and indexes supply/market-cap reference records.
// Source failures are absorbed: the pipeline degrades to an empty map
// instead of propagating an error.
type Registry struct {
	store   storage.SupplyStore
	timeout time.Duration
	logger  *log.Logger
}

// Options for creating a Registry.
type Options struct {
	Store   storage.SupplyStore
	Timeout time.Duration // defaults to DefaultFetchTimeout
	Logger  *log.Logger
}

// NewRegistry creates a new Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[supply] ", log.LstdFlags)
	}
	return &Registry{
		store:   opts.Store,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// FetchSupply returns the reference table indexed by normalized symbol.
// Non-positive numeric values are treated as absent, the same as a NULL
// or unparsable source field.
func (r *Registry) FetchSupply(ctx context.Context) map[string]*domain.SupplyRecord {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	records, err := r.store.GetAll(ctx)
	observability.RecordFetch("supply", time.Since(start).Seconds(), err)
	if err != nil {
		r.logger.Printf("reference fetch failed, continuing without supply data: %v", err)
		return map[string]*domain.SupplyRecord{}
	}

	index := make(map[string]*domain.SupplyRecord, len(records))
	for _, rec := range records {
		if rec == nil || rec.Symbol == "" {
			continue
		}
		clean := domain.SupplyRecord{
			Symbol:            domain.NormalizeSymbol(rec.Symbol),
			CirculatingSupply: positiveOrAbsent(rec.CirculatingSupply),
			MarketCap:         positiveOrAbsent(rec.MarketCap),
		}
		index[clean.Symbol] = &clean
	}

	return index
}

// positiveOrAbsent keeps only strictly positive values.
func positiveOrAbsent(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	value := *v
	return &value
}
