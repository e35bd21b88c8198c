package memory

import (
	"context"
	"sort"
	"sync"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
)

// SampleStore is an in-memory implementation of storage.SampleStore.
type SampleStore struct {
	mu   sync.RWMutex
	data map[string]domain.SymbolSeries // keyed by symbol, kept sorted ASC
}

// NewSampleStore creates a new in-memory sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{
		data: make(map[string]domain.SymbolSeries),
	}
}

var _ storage.SampleStore = (*SampleStore)(nil)

// InsertBulk adds multiple sample points.
func (s *SampleStore) InsertBulk(_ context.Context, points []*domain.SamplePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		sym := domain.NormalizeSymbol(p.Symbol)
		pointCopy := *p
		pointCopy.Symbol = sym
		s.data[sym] = append(s.data[sym], &pointCopy)
		touched[sym] = struct{}{}
	}

	for sym := range touched {
		series := s.data[sym]
		sort.Slice(series, func(i, j int) bool {
			return series[i].TimestampMs < series[j].TimestampMs
		})
	}

	return nil
}

// TopSymbolsByOI returns symbols ordered by descending open-interest notional.
func (s *SampleStore) TopSymbolsByOI(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ranked struct {
		symbol   string
		notional float64
	}

	all := make([]ranked, 0, len(s.data))
	for sym, series := range s.data {
		var max float64
		for _, p := range series {
			if n := p.Price * p.OpenInterest; n > max {
				max = n
			}
		}
		all = append(all, ranked{symbol: sym, notional: max})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].notional != all[j].notional {
			return all[i].notional > all[j].notional
		}
		return all[i].symbol < all[j].symbol
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	symbols := make([]string, len(all))
	for i, r := range all {
		symbols[i] = r.symbol
	}
	return symbols, nil
}

// RecentSeries returns a decimated series per requested symbol.
func (s *SampleStore) RecentSeries(_ context.Context, symbols []string, maxPoints, stride int) (map[string]domain.SymbolSeries, error) {
	if maxPoints <= 0 || stride <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.SymbolSeries)
	for _, raw := range symbols {
		sym := domain.NormalizeSymbol(raw)
		series, ok := s.data[sym]
		if !ok || len(series) == 0 {
			continue
		}

		// Walk newest-first assigning recency ranks, keep rank 1 and
		// every stride-th rank, then restore ascending order.
		var kept domain.SymbolSeries
		for i := 0; i < len(series) && i < maxPoints; i++ {
			rank := i + 1
			if rank != 1 && rank%stride != 0 {
				continue
			}
			p := *series[len(series)-1-i]
			kept = append(kept, &p)
		}
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
		result[sym] = kept
	}

	return result, nil
}
