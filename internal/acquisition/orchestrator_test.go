package acquisition

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oi-radar/internal/domain"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// countingSources implements SupplySource and SeriesSource while counting
// underlying fetches, with an optional artificial delay.
type countingSources struct {
	mu            sync.Mutex
	supplyCalls   int
	universeCalls int
	seriesCalls   int

	delay    time.Duration
	universe []string
	series   map[string]domain.SymbolSeries
	supply   map[string]*domain.SupplyRecord
}

func (c *countingSources) FetchSupply(context.Context) map[string]*domain.SupplyRecord {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supplyCalls++
	if c.supply == nil {
		return map[string]*domain.SupplyRecord{}
	}
	return c.supply
}

func (c *countingSources) ResolveUniverse(context.Context, int) []string {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.universeCalls++
	return c.universe
}

func (c *countingSources) FetchSeries(context.Context, []string, int, int) map[string]domain.SymbolSeries {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seriesCalls++
	if c.series == nil {
		return map[string]domain.SymbolSeries{}
	}
	return c.series
}

func (c *countingSources) calls() (supply, universe, series int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supplyCalls, c.universeCalls, c.seriesCalls
}

func testSeries(symbol string, n int) domain.SymbolSeries {
	series := make(domain.SymbolSeries, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, &domain.SamplePoint{
			Symbol:       symbol,
			TimestampMs:  int64(1000 * (i + 1)),
			Price:        10,
			OpenInterest: float64(100 + i),
		})
	}
	return series
}

func TestOrchestrator_GetSnapshot_JoinsBothSources(t *testing.T) {
	sources := &countingSources{
		universe: []string{"BTCUSDT", "ETHUSDT"},
		series: map[string]domain.SymbolSeries{
			"BTCUSDT": testSeries("BTCUSDT", 3),
		},
		supply: map[string]*domain.SupplyRecord{
			"BTCUSDT": {Symbol: "BTCUSDT"},
		},
	}

	orch := New(Options{SupplySource: sources, SeriesSource: sources, Logger: quietLogger()})

	snap, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, snap.Targets)
	assert.Len(t, snap.Series, 1)
	assert.Len(t, snap.Supply, 1)
	assert.False(t, snap.Empty())
}

func TestOrchestrator_GetSnapshot_EmptyUniverseIsValid(t *testing.T) {
	sources := &countingSources{} // universe resolution yields nothing

	orch := New(Options{SupplySource: sources, SeriesSource: sources, Logger: quietLogger()})

	snap, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Empty())
	assert.NotNil(t, snap.Series)
	assert.Empty(t, snap.Series)
	assert.Empty(t, snap.Targets)

	// No series fetch is issued for an empty universe.
	_, _, seriesCalls := sources.calls()
	assert.Equal(t, 0, seriesCalls)
}

func TestOrchestrator_GetSnapshot_CachedWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	sources := &countingSources{universe: []string{"BTCUSDT"}}
	orch := New(Options{
		SupplySource: sources,
		SeriesSource: sources,
		SnapshotTTL:  time.Minute,
		Logger:       quietLogger(),
		Clock:        clock,
	})

	first, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	second, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)

	// Same snapshot identity, one underlying fetch pair.
	assert.Same(t, first, second)
	supplyCalls, universeCalls, _ := sources.calls()
	assert.Equal(t, 1, supplyCalls)
	assert.Equal(t, 1, universeCalls)

	// Past expiry the snapshot is rebuilt.
	now = now.Add(31 * time.Second)
	third, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	supplyCalls, universeCalls, _ = sources.calls()
	assert.Equal(t, 2, supplyCalls)
	assert.Equal(t, 2, universeCalls)
}

func TestOrchestrator_GetSnapshot_SingleFlight(t *testing.T) {
	sources := &countingSources{
		delay:    50 * time.Millisecond,
		universe: []string{"BTCUSDT"},
	}
	orch := New(Options{SupplySource: sources, SeriesSource: sources, Logger: quietLogger()})

	const callers = 8
	snaps := make([]*domain.Snapshot, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = orch.GetSnapshot(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	// All concurrent callers collapsed into exactly one acquisition.
	supplyCalls, universeCalls, _ := sources.calls()
	assert.Equal(t, 1, supplyCalls)
	assert.Equal(t, 1, universeCalls)

	for i := 1; i < callers; i++ {
		assert.Same(t, snaps[0], snaps[i])
	}
}

func TestOrchestrator_ForceRefresh_InvalidatesCache(t *testing.T) {
	sources := &countingSources{universe: []string{"BTCUSDT"}}
	orch := New(Options{SupplySource: sources, SeriesSource: sources, Logger: quietLogger()})

	first, err := orch.GetSnapshot(context.Background())
	require.NoError(t, err)

	second, err := orch.ForceRefresh(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	supplyCalls, _, _ := sources.calls()
	assert.Equal(t, 2, supplyCalls)
}

func TestOrchestrator_GetSnapshot_ContextCanceledWhileWaiting(t *testing.T) {
	sources := &countingSources{
		delay:    200 * time.Millisecond,
		universe: []string{"BTCUSDT"},
	}
	orch := New(Options{SupplySource: sources, SeriesSource: sources, Logger: quietLogger()})

	// First caller holds the in-flight slot.
	go orch.GetSnapshot(context.Background())
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := orch.GetSnapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
