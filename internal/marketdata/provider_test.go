package marketdata

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage/memory"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// failingSampleStore always errors.
type failingSampleStore struct{}

func (failingSampleStore) InsertBulk(context.Context, []*domain.SamplePoint) error {
	return errors.New("connection refused")
}

func (failingSampleStore) TopSymbolsByOI(context.Context, int) ([]string, error) {
	return nil, errors.New("connection refused")
}

func (failingSampleStore) RecentSeries(context.Context, []string, int, int) (map[string]domain.SymbolSeries, error) {
	return nil, errors.New("connection refused")
}

func seedStore(t *testing.T) *memory.SampleStore {
	t.Helper()

	store := memory.NewSampleStore()
	var points []*domain.SamplePoint
	prices := map[string]float64{"BTCUSDT": 50000, "ETHUSDT": 3000, "DOGEUSDT": 0.1}
	for sym, price := range prices {
		for i := 0; i < 10; i++ {
			points = append(points, &domain.SamplePoint{
				Symbol:       sym,
				TimestampMs:  int64(1000 * (i + 1)),
				Price:        price,
				OpenInterest: float64(100 + i),
			})
		}
	}
	if err := store.InsertBulk(context.Background(), points); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return store
}

func TestProvider_ResolveUniverse_TruncatesToMax(t *testing.T) {
	provider := NewProvider(Options{Store: seedStore(t), Logger: quietLogger()})

	symbols := provider.ResolveUniverse(context.Background(), 2)

	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(symbols))
	}
	if symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Errorf("expected [BTCUSDT ETHUSDT], got %v", symbols)
	}
}

func TestProvider_ResolveUniverse_FailureYieldsEmptyList(t *testing.T) {
	provider := NewProvider(Options{Store: failingSampleStore{}, Logger: quietLogger()})

	symbols := provider.ResolveUniverse(context.Background(), 10)

	if len(symbols) != 0 {
		t.Errorf("expected empty list on failure, got %v", symbols)
	}
}

func TestProvider_FetchSeries_ReturnsRequestedSymbols(t *testing.T) {
	provider := NewProvider(Options{Store: seedStore(t), Logger: quietLogger()})

	series := provider.FetchSeries(context.Background(), []string{"BTCUSDT", "MISSINGUSDT"}, 100, 1)

	if len(series["BTCUSDT"]) != 10 {
		t.Errorf("expected 10 points for BTCUSDT, got %d", len(series["BTCUSDT"]))
	}
	if _, ok := series["MISSINGUSDT"]; ok {
		t.Error("symbols without data must be absent, not empty")
	}
}

func TestProvider_FetchSeries_FailureYieldsEmptyMap(t *testing.T) {
	provider := NewProvider(Options{Store: failingSampleStore{}, Logger: quietLogger()})

	series := provider.FetchSeries(context.Background(), []string{"BTCUSDT"}, 100, 1)

	if series == nil {
		t.Fatal("expected non-nil empty map on failure")
	}
	if len(series) != 0 {
		t.Errorf("expected empty map, got %v", series)
	}
}

func TestProvider_FetchSeries_NoSymbols(t *testing.T) {
	provider := NewProvider(Options{Store: seedStore(t), Logger: quietLogger()})

	series := provider.FetchSeries(context.Background(), nil, 100, 1)
	if len(series) != 0 {
		t.Errorf("expected empty map for empty symbol list, got %v", series)
	}
}
