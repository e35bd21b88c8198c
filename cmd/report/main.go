// Package main generates a one-shot leaderboard report (Markdown + CSV)
// from the stored market data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"oi-radar/internal/acquisition"
	"oi-radar/internal/marketdata"
	"oi-radar/internal/ranking"
	"oi-radar/internal/reporting"
	"oi-radar/internal/storage"
	chstore "oi-radar/internal/storage/clickhouse"
	"oi-radar/internal/storage/memory"
	pgstore "oi-radar/internal/storage/postgres"
	"oi-radar/internal/supply"
)

func main() {
	_ = godotenv.Load()

	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use empty in-memory stores instead of databases")
	maxSymbols := flag.Int("max-symbols", acquisition.DefaultMaxSymbols, "Tracked symbol count")
	topN := flag.Int("top-n", reporting.DefaultTopN, "Leaderboard length")
	flag.Parse()

	ctx := context.Background()

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required (or --use-memory)")
		os.Exit(1)
	}

	var (
		sampleStore storage.SampleStore
		supplyStore storage.SupplyStore
	)
	if *useMemory {
		sampleStore = memory.NewSampleStore()
		supplyStore = memory.NewSupplyStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		chConn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer chConn.Close()

		sampleStore = chstore.NewSampleStore(chConn)
		supplyStore = pgstore.NewSupplyStore(pool)
	}

	orch := acquisition.New(acquisition.Options{
		SupplySource: supply.NewRegistry(supply.Options{Store: supplyStore}),
		SeriesSource: marketdata.NewProvider(marketdata.Options{Store: sampleStore}),
		MaxSymbols:   *maxSymbols,
	})

	report, err := reporting.NewGenerator(orch, ranking.NewCalculator()).
		WithTopN(*topN).
		Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, "SURGE_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
		os.Exit(1)
	}

	snap, err := orch.GetSnapshot(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error acquiring snapshot: %v\n", err)
		os.Exit(1)
	}
	entries := ranking.NewCalculator().Compute(snap)

	csvPath := filepath.Join(*outputDir, "RANKINGS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(entries)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}

	fmt.Printf("Report generated at %s:\n", time.Now().Format(time.RFC3339))
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
}
