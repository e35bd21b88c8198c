package clickhouse

import (
	"context"
	"fmt"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
)

// SampleStore implements storage.SampleStore using ClickHouse.
type SampleStore struct {
	conn *Conn
}

// NewSampleStore creates a new SampleStore.
func NewSampleStore(conn *Conn) *SampleStore {
	return &SampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleStore = (*SampleStore)(nil)

// InsertBulk adds multiple sample points.
func (s *SampleStore) InsertBulk(ctx context.Context, points []*domain.SamplePoint) error {
	if len(points) == 0 {
		return nil
	}

	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_samples (
			symbol, timestamp_ms, price, open_interest
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			domain.NormalizeSymbol(p.Symbol), uint64(p.TimestampMs),
			p.Price, p.OpenInterest,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// TopSymbolsByOI returns symbols ordered by descending open-interest notional.
func (s *SampleStore) TopSymbolsByOI(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT symbol
		FROM market_samples
		GROUP BY symbol
		ORDER BY max(price * open_interest) DESC, symbol ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query top symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}

	return symbols, nil
}

// RecentSeries returns a decimated series per requested symbol. Decimation
// happens server-side: per symbol the rows are ranked by recency and only
// rank 1 plus every stride-th rank inside the maxPoints window survive.
func (s *SampleStore) RecentSeries(ctx context.Context, symbols []string, maxPoints, stride int) (map[string]domain.SymbolSeries, error) {
	if maxPoints <= 0 || stride <= 0 {
		return nil, storage.ErrInvalidInput
	}
	if len(symbols) == 0 {
		return map[string]domain.SymbolSeries{}, nil
	}

	normalized := make([]string, len(symbols))
	for i, sym := range symbols {
		normalized[i] = domain.NormalizeSymbol(sym)
	}

	query := `
		WITH ranked AS (
			SELECT symbol, timestamp_ms, price, open_interest,
				row_number() OVER (PARTITION BY symbol ORDER BY timestamp_ms DESC) AS rn
			FROM market_samples
			WHERE symbol IN (?)
		)
		SELECT symbol, timestamp_ms, price, open_interest
		FROM ranked
		WHERE rn <= ? AND (rn = 1 OR rn % ? = 0)
		ORDER BY symbol ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, normalized, uint64(maxPoints), uint64(stride))
	if err != nil {
		return nil, fmt.Errorf("query recent series: %w", err)
	}
	defer rows.Close()

	return scanSampleSeries(rows)
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSampleSeries scans rows into per-symbol series. Rows arrive ordered
// by (symbol, timestamp_ms) so each series is built already ascending.
func scanSampleSeries(rows chRows) (map[string]domain.SymbolSeries, error) {
	result := make(map[string]domain.SymbolSeries)

	for rows.Next() {
		var p domain.SamplePoint
		var timestampMs uint64

		err := rows.Scan(&p.Symbol, &timestampMs, &p.Price, &p.OpenInterest)
		if err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		result[p.Symbol] = append(result[p.Symbol], &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample rows: %w", err)
	}

	return result, nil
}
