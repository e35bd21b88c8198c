package storage

import (
	"context"

	"oi-radar/internal/domain"
)

// SampleStore provides access to market_samples storage.
type SampleStore interface {
	// InsertBulk adds multiple sample points.
	InsertBulk(ctx context.Context, points []*domain.SamplePoint) error

	// TopSymbolsByOI returns symbols ordered by descending open-interest
	// notional (max price*open_interest over the stored window), up to limit.
	TopSymbolsByOI(ctx context.Context, limit int) ([]string, error)

	// RecentSeries returns a decimated series per requested symbol: among the
	// maxPoints most recent points (recency rank 1 = newest), only rank 1 and
	// every stride-th rank are kept, re-ordered ascending by timestamp.
	// Symbols with no data are absent from the result map.
	RecentSeries(ctx context.Context, symbols []string, maxPoints, stride int) (map[string]domain.SymbolSeries, error)
}

// SupplyStore provides access to supply_records storage.
type SupplyStore interface {
	// InsertBulk adds or replaces reference records.
	InsertBulk(ctx context.Context, records []*domain.SupplyRecord) error

	// GetAll retrieves the full reference table.
	GetAll(ctx context.Context) ([]*domain.SupplyRecord, error)
}
