// Package acquisition coordinates concurrent multi-source data acquisition
// into a TTL-cached snapshot.
package acquisition

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"oi-radar/internal/domain"
	"oi-radar/internal/observability"
)

// Defaults mirroring the production deployment.
const (
	DefaultMaxSymbols  = 150
	DefaultMaxPoints   = 4000
	DefaultStride      = 10
	DefaultSnapshotTTL = 60 * time.Second
)

// SupplySource yields the reference table. Implementations absorb source
// failures and return an empty map instead of erroring.
type SupplySource interface {
	FetchSupply(ctx context.Context) map[string]*domain.SupplyRecord
}

// SeriesSource resolves the symbol universe and fetches per-symbol series.
// Implementations absorb source failures into empty results.
type SeriesSource interface {
	ResolveUniverse(ctx context.Context, maxSymbols int) []string
	FetchSeries(ctx context.Context, symbols []string, maxPoints, stride int) map[string]domain.SymbolSeries
}

// Orchestrator runs the supply fetch and the universe+series fetch as two
// concurrent tasks, joins them into a Snapshot, and caches the result for a
// fixed TTL with single-flight semantics.
type Orchestrator struct {
	supply SupplySource
	series SeriesSource

	maxSymbols int
	maxPoints  int
	stride     int
	ttl        time.Duration

	cache  *snapshotCache
	logger *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	SupplySource SupplySource
	SeriesSource SeriesSource

	MaxSymbols  int           // defaults to DefaultMaxSymbols
	MaxPoints   int           // defaults to DefaultMaxPoints
	Stride      int           // defaults to DefaultStride
	SnapshotTTL time.Duration // defaults to DefaultSnapshotTTL

	Logger *log.Logger
	Clock  func() time.Time // injectable for tests
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.MaxSymbols <= 0 {
		opts.MaxSymbols = DefaultMaxSymbols
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	if opts.Stride <= 0 {
		opts.Stride = DefaultStride
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = DefaultSnapshotTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[acquisition] ", log.LstdFlags)
	}

	return &Orchestrator{
		supply:     opts.SupplySource,
		series:     opts.SeriesSource,
		maxSymbols: opts.MaxSymbols,
		maxPoints:  opts.MaxPoints,
		stride:     opts.Stride,
		ttl:        opts.SnapshotTTL,
		cache:      newSnapshotCache(opts.Clock),
		logger:     opts.Logger,
	}
}

// GetSnapshot returns the current snapshot, serving from cache within the
// TTL window. Concurrent callers during a refresh share one acquisition.
// The only error condition is context cancellation while waiting; degraded
// sources still produce a (partially empty) snapshot.
func (o *Orchestrator) GetSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	return o.cache.get(ctx, o.ttl, o.acquire)
}

// ForceRefresh invalidates the cache and acquires a fresh snapshot.
func (o *Orchestrator) ForceRefresh(ctx context.Context) (*domain.Snapshot, error) {
	o.cache.invalidate()
	return o.GetSnapshot(ctx)
}

// acquire runs the two fetch tasks concurrently and joins the results.
// Either task may fail independently; the other still completes and the
// joined snapshot is returned regardless.
func (o *Orchestrator) acquire(ctx context.Context) *domain.Snapshot {
	start := time.Now()

	var (
		supplyMap map[string]*domain.SupplyRecord
		seriesMap map[string]domain.SymbolSeries
		targets   []string
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		supplyMap = o.supply.FetchSupply(ctx)
	}()

	go func() {
		defer wg.Done()
		targets = o.series.ResolveUniverse(ctx, o.maxSymbols)
		if len(targets) == 0 {
			seriesMap = map[string]domain.SymbolSeries{}
			return
		}
		seriesMap = o.series.FetchSeries(ctx, targets, o.maxPoints, o.stride)
	}()

	wg.Wait()

	if supplyMap == nil {
		supplyMap = map[string]*domain.SupplyRecord{}
	}
	if seriesMap == nil {
		seriesMap = map[string]domain.SymbolSeries{}
	}

	snap := &domain.Snapshot{
		Supply:  supplyMap,
		Series:  seriesMap,
		Targets: targets,
	}

	o.logger.Printf("snapshot acquired in %v: %d targets, %d series, %d supply records",
		time.Since(start), len(targets), len(seriesMap), len(supplyMap))
	observability.RecordSnapshotRefresh(float64(time.Now().Unix()))
	observability.UpdateRankingSizes(len(targets), len(seriesMap))

	return snap
}
