package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
)

// SupplyStore implements storage.SupplyStore using PostgreSQL.
type SupplyStore struct {
	pool *Pool
}

// NewSupplyStore creates a new SupplyStore.
func NewSupplyStore(pool *Pool) *SupplyStore {
	return &SupplyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SupplyStore = (*SupplyStore)(nil)

// InsertBulk adds or replaces reference records. Reference data is refreshed
// wholesale, so existing rows are overwritten rather than rejected.
func (s *SupplyStore) InsertBulk(ctx context.Context, records []*domain.SupplyRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO supply_records (symbol, circulating_supply, market_cap)
			VALUES ($1, $2, $3)
			ON CONFLICT (symbol) DO UPDATE SET
				circulating_supply = EXCLUDED.circulating_supply,
				market_cap = EXCLUDED.market_cap
		`, domain.NormalizeSymbol(r.Symbol), r.CirculatingSupply, r.MarketCap)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert supply record: %w", err)
		}
	}

	return nil
}

// GetAll retrieves the full reference table, ordered by symbol.
func (s *SupplyStore) GetAll(ctx context.Context) ([]*domain.SupplyRecord, error) {
	query := `
		SELECT symbol, circulating_supply, market_cap
		FROM supply_records
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query supply records: %w", err)
	}
	defer rows.Close()

	var records []*domain.SupplyRecord
	for rows.Next() {
		var r domain.SupplyRecord
		if err := rows.Scan(&r.Symbol, &r.CirculatingSupply, &r.MarketCap); err != nil {
			return nil, fmt.Errorf("scan supply record row: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supply record rows: %w", err)
	}

	return records, nil
}
