// Package marketdata provides the time-series provider for per-symbol
// price and open-interest samples.
package marketdata

import (
	"context"
	"log"
	"os"
	"time"

	"oi-radar/internal/domain"
	"oi-radar/internal/observability"
	"oi-radar/internal/storage"
)

// Defaults mirroring the production deployment.
const (
	// DefaultUniverseLimit is the server-side resolve depth before the
	// caller's maxSymbols truncation is applied.
	DefaultUniverseLimit = 200

	// DefaultFetchTimeout bounds a single remote call.
	DefaultFetchTimeout = 10 * time.Second
)

// Provider resolves the active symbol universe and fetches recency-limited,
// server-decimated per-symbol series. Source failures are absorbed into
// empty results; a symbol missing from a fetch is simply absent, never fatal.
type Provider struct {
	store         storage.SampleStore
	universeLimit int
	timeout       time.Duration
	logger        *log.Logger
}

// Options for creating a Provider.
type Options struct {
	Store         storage.SampleStore
	UniverseLimit int           // defaults to DefaultUniverseLimit
	Timeout       time.Duration // defaults to DefaultFetchTimeout
	Logger        *log.Logger
}

// NewProvider creates a new Provider.
func NewProvider(opts Options) *Provider {
	if opts.UniverseLimit <= 0 {
		opts.UniverseLimit = DefaultUniverseLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[marketdata] ", log.LstdFlags)
	}
	return &Provider{
		store:         opts.Store,
		universeLimit: opts.UniverseLimit,
		timeout:       opts.Timeout,
		logger:        opts.Logger,
	}
}

// ResolveUniverse returns symbols ordered by descending server-side
// open-interest notional, truncated to maxSymbols. Returns an empty list
// on failure.
func (p *Provider) ResolveUniverse(ctx context.Context, maxSymbols int) []string {
	if maxSymbols <= 0 {
		return nil
	}

	limit := p.universeLimit
	if limit < maxSymbols {
		limit = maxSymbols
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	symbols, err := p.store.TopSymbolsByOI(ctx, limit)
	observability.RecordFetch("universe", time.Since(start).Seconds(), err)
	if err != nil {
		p.logger.Printf("universe resolution failed: %v", err)
		return nil
	}

	if len(symbols) > maxSymbols {
		symbols = symbols[:maxSymbols]
	}
	return symbols
}

// FetchSeries returns the decimated series for each requested symbol.
// Returns an empty map on failure; symbols with no data are absent.
func (p *Provider) FetchSeries(ctx context.Context, symbols []string, maxPoints, stride int) map[string]domain.SymbolSeries {
	if len(symbols) == 0 {
		return map[string]domain.SymbolSeries{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	series, err := p.store.RecentSeries(ctx, symbols, maxPoints, stride)
	observability.RecordFetch("series", time.Since(start).Seconds(), err)
	if err != nil {
		p.logger.Printf("series fetch failed: %v", err)
		return map[string]domain.SymbolSeries{}
	}

	return series
}
