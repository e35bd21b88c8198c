// Package main backfills market samples and supply records from delimited
// files into the stores. Intended for deployments without an external
// collector feeding the databases yet.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
	chstore "oi-radar/internal/storage/clickhouse"
	"oi-radar/internal/storage/migrations"
	pgstore "oi-radar/internal/storage/postgres"
)

// Insert batch size. ClickHouse prefers large batches; this keeps memory
// bounded for multi-gigabyte backfills.
const batchSize = 10000

func main() {
	_ = godotenv.Load()

	samplesFile := flag.String("samples-file", "", "Delimited samples file: symbol,timestamp_ms,price,open_interest")
	supplyFile := flag.String("supply-file", "", "Delimited supply file: symbol,circulating_supply,market_cap")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *samplesFile == "" && *supplyFile == "" {
		logger.Fatal("Nothing to do: provide --samples-file and/or --supply-file")
	}
	if *samplesFile != "" && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required for sample backfill")
	}
	if *supplyFile != "" && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required for supply backfill")
	}

	ctx := context.Background()

	if *samplesFile != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse setup failed: %v", err)
		}
		defer chConn.Close()

		n, err := backfillSamples(ctx, chstore.NewSampleStore(chConn), *samplesFile)
		if err != nil {
			logger.Fatalf("Sample backfill failed: %v", err)
		}
		logger.Printf("Inserted %d sample points from %s", n, *samplesFile)
	}

	if *supplyFile != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Postgres connection failed: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Postgres migrations failed: %v", err)
		}

		n, err := backfillSupply(ctx, pgstore.NewSupplyStore(pool), *supplyFile)
		if err != nil {
			logger.Fatalf("Supply backfill failed: %v", err)
		}
		logger.Printf("Inserted %d supply records from %s", n, *supplyFile)
	}
}

// backfillSamples streams the file into the store in fixed-size batches.
func backfillSamples(ctx context.Context, store storage.SampleStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open samples file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	// Header row
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	total := 0
	batch := make([]*domain.SamplePoint, 0, batchSize)
	line := 1

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertBulk(ctx, batch); err != nil {
			return fmt.Errorf("insert batch ending at line %d: %w", line, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read line %d: %w", line, err)
		}
		line++

		if len(record) < 4 {
			return total, fmt.Errorf("line %d: expected 4 columns, got %d", line, len(record))
		}
		ts, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return total, fmt.Errorf("line %d: timestamp_ms: %w", line, err)
		}
		price, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return total, fmt.Errorf("line %d: price: %w", line, err)
		}
		oi, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return total, fmt.Errorf("line %d: open_interest: %w", line, err)
		}

		batch = append(batch, &domain.SamplePoint{
			Symbol:       domain.NormalizeSymbol(record[0]),
			TimestampMs:  ts,
			Price:        price,
			OpenInterest: oi,
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// backfillSupply loads the full reference table and upserts it in one call,
// matching the replace-wholesale semantics of the store.
func backfillSupply(ctx context.Context, store storage.SupplyStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open supply file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	var records []*domain.SupplyRecord
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read line %d: %w", line, err)
		}
		line++

		if len(record) < 3 {
			return 0, fmt.Errorf("line %d: expected 3 columns, got %d", line, len(record))
		}
		records = append(records, &domain.SupplyRecord{
			Symbol:            domain.NormalizeSymbol(record[0]),
			CirculatingSupply: parseOptional(record[1]),
			MarketCap:         parseOptional(record[2]),
		})
	}

	if len(records) == 0 {
		return 0, nil
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		return 0, fmt.Errorf("insert supply records: %w", err)
	}
	return len(records), nil
}

// parseOptional keeps only strictly positive parseable values.
func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
