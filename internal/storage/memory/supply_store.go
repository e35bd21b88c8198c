package memory

import (
	"context"
	"sort"
	"sync"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
)

// SupplyStore is an in-memory implementation of storage.SupplyStore.
type SupplyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SupplyRecord // keyed by symbol
}

// NewSupplyStore creates a new in-memory supply store.
func NewSupplyStore() *SupplyStore {
	return &SupplyStore{
		data: make(map[string]*domain.SupplyRecord),
	}
}

var _ storage.SupplyStore = (*SupplyStore)(nil)

// InsertBulk adds or replaces reference records.
func (s *SupplyStore) InsertBulk(_ context.Context, records []*domain.SupplyRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		recordCopy := *r
		recordCopy.Symbol = domain.NormalizeSymbol(r.Symbol)
		s.data[recordCopy.Symbol] = &recordCopy
	}

	return nil
}

// GetAll retrieves the full reference table, ordered by symbol.
func (s *SupplyStore) GetAll(_ context.Context) ([]*domain.SupplyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SupplyRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}
