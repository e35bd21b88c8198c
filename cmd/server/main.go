// Package main provides the surge radar server:
// - Acquisition: TTL-cached concurrent snapshot of OI series + supply reference
// - Ranking: intensity and whale leaderboards over the live snapshot
// - HTTP API: rankings, per-symbol chart series, manual refresh, status
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"oi-radar/internal/acquisition"
	"oi-radar/internal/domain"
	"oi-radar/internal/downsample"
	"oi-radar/internal/flatfile"
	"oi-radar/internal/marketdata"
	"oi-radar/internal/observability"
	"oi-radar/internal/ranking"
	"oi-radar/internal/reporting"
	"oi-radar/internal/storage"
	chstore "oi-radar/internal/storage/clickhouse"
	"oi-radar/internal/storage/memory"
	"oi-radar/internal/storage/migrations"
	pgstore "oi-radar/internal/storage/postgres"
	"oi-radar/internal/supply"
)

// Server holds the running components and request-time configuration.
type Server struct {
	orchestrator *acquisition.Orchestrator
	calc         *ranking.Calculator
	flatfile     *flatfile.Client // optional alternate source
	threshold    float64

	topN         int
	chartPoints  int
	useFlatfile  bool
	logger       *log.Logger

	// State
	mu        sync.Mutex
	started   time.Time
	refreshes int
	lastSnap  time.Time
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse/PostgreSQL")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	maxSymbols := flag.Int("max-symbols", acquisition.DefaultMaxSymbols, "Tracked symbol count")
	maxPoints := flag.Int("max-points", acquisition.DefaultMaxPoints, "Recency window per symbol (rows)")
	stride := flag.Int("stride", acquisition.DefaultStride, "Server-side decimation stride")
	snapshotTTL := flag.Duration("snapshot-ttl", acquisition.DefaultSnapshotTTL, "Snapshot cache TTL")
	refreshInterval := flag.Duration("refresh-interval", 0, "Background cache warm interval (0 disables)")
	topN := flag.Int("top-n", reporting.DefaultTopN, "Leaderboard length")
	chartPoints := flag.Int("chart-points", downsample.DefaultTargetPoints, "Downsample target for chart series")
	damping := flag.Float64("fallback-damping", ranking.DefaultFallbackDamping, "Damping for the no-market-cap intensity fallback")
	flatfileURL := flag.String("flatfile-url", os.Getenv("FLATFILE_URL"), "Pre-aggregated surge table URL (replaces live ranking)")
	flatfileThreshold := flag.Float64("flatfile-threshold", 0, "Minimum increase_ratio for flat-file rows")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampleStore, supplyStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	orch := acquisition.New(acquisition.Options{
		SupplySource: supply.NewRegistry(supply.Options{Store: supplyStore}),
		SeriesSource: marketdata.NewProvider(marketdata.Options{Store: sampleStore}),
		MaxSymbols:   *maxSymbols,
		MaxPoints:    *maxPoints,
		Stride:       *stride,
		SnapshotTTL:  *snapshotTTL,
	})

	server := &Server{
		orchestrator: orch,
		calc:         ranking.NewCalculator().WithDamping(*damping),
		topN:         *topN,
		chartPoints:  *chartPoints,
		threshold:    *flatfileThreshold,
		useFlatfile:  *flatfileURL != "",
		logger:       logger,
		started:      time.Now(),
	}
	if server.useFlatfile {
		server.flatfile = flatfile.NewClient(*flatfileURL)
		logger.Printf("Using flat-file surge table at %s", *flatfileURL)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if *refreshInterval > 0 {
		go server.runRefreshLoop(ctx, *refreshInterval)
	}

	httpServer := &http.Server{Addr: *listenAddr, Handler: server.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// envOr returns the env value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createStores creates the sample and supply stores, running migrations in
// database mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.SampleStore, storage.SupplyStore, func(), error) {
	if useMemory {
		return memory.NewSampleStore(), memory.NewSupplyStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return chstore.NewSampleStore(chConn), pgstore.NewSupplyStore(pool), cleanup, nil
}

// runRefreshLoop keeps the snapshot cache warm so requests never pay the
// acquisition latency.
func (s *Server) runRefreshLoop(ctx context.Context, interval time.Duration) {
	s.logger.Printf("Starting refresh loop (interval: %v)...", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.orchestrator.GetSnapshot(ctx); err != nil {
				s.logger.Printf("Background refresh error: %v", err)
				continue
			}
			s.noteRefresh()
		}
	}
}

func (s *Server) noteRefresh() {
	s.mu.Lock()
	s.refreshes++
	s.lastSnap = time.Now()
	s.mu.Unlock()
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("GET /api/rankings", s.timed("rankings", s.handleRankings))
	mux.HandleFunc("GET /api/series/{symbol}", s.timed("series", s.handleSeries))
	mux.HandleFunc("POST /api/refresh", s.timed("refresh", s.handleRefresh))

	return mux
}

// timed wraps a handler with request duration metrics.
func (s *Server) timed(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		observability.RecordRequest(endpoint, time.Since(start).Seconds())
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Started      time.Time `json:"started"`
	LastSnapshot time.Time `json:"last_snapshot,omitempty"`
	Refreshes    int       `json:"refreshes"`
	FlatfileMode bool      `json:"flatfile_mode"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		Started:      s.started,
		LastSnapshot: s.lastSnap,
		Refreshes:    s.refreshes,
		FlatfileMode: s.useFlatfile,
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

// RankingRow is one leaderboard entry on the wire.
type RankingRow struct {
	Symbol      string  `json:"symbol"`
	Intensity   float64 `json:"intensity"`
	OIGrowthUSD float64 `json:"oi_growth_usd"`
	MarketCap   float64 `json:"market_cap,omitempty"`
}

// RankingsResponse is the JSON response for /api/rankings.
type RankingsResponse struct {
	TopIntensity []RankingRow `json:"top_intensity"`
	TopWhale     []RankingRow `json:"top_whale"`
	Remaining    []string     `json:"remaining,omitempty"`
	TargetCount  int          `json:"target_count"`
}

// handleRankings serves the two leaderboards, either computed from the live
// snapshot or read from the pre-aggregated flat-file table.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	if s.useFlatfile {
		s.handleFlatfileRankings(w, r)
		return
	}

	report, err := reporting.NewGenerator(s.orchestrator, s.calc).
		WithTopN(queryInt(r, "n", s.topN)).
		Generate(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.noteRefresh()

	writeJSON(w, RankingsResponse{
		TopIntensity: toRows(report.TopIntensity),
		TopWhale:     toRows(report.TopWhale),
		Remaining:    report.Remaining,
		TargetCount:  report.TargetCount,
	})
}

// handleFlatfileRankings serves rankings from the alternate source. Both
// leaderboards collapse to the single pre-aggregated ordering.
func (s *Server) handleFlatfileRankings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.flatfile.Fetch(r.Context(), s.threshold)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	page := flatfile.Page(entries, queryInt(r, "page", 1), queryInt(r, "page_size", s.topN))
	rows := make([]RankingRow, 0, len(page))
	for _, e := range page {
		row := RankingRow{Symbol: e.Symbol, Intensity: e.IncreaseRatio}
		if e.IncreaseAmountUSDT != nil {
			row.OIGrowthUSD = *e.IncreaseAmountUSDT
		}
		rows = append(rows, row)
	}

	writeJSON(w, RankingsResponse{
		TopIntensity: rows,
		TopWhale:     rows,
		TargetCount:  len(entries),
	})
}

// SeriesPoint is one chart sample on the wire.
type SeriesPoint struct {
	TimestampMs  int64   `json:"t"`
	Price        float64 `json:"price"`
	OpenInterest float64 `json:"oi"`
}

// SeriesResponse is the JSON response for /api/series/{symbol}.
type SeriesResponse struct {
	Symbol    string        `json:"symbol"`
	Direction string        `json:"direction"` // "up" when last price >= first
	Points    []SeriesPoint `json:"points"`
}

// handleSeries serves the downsampled chart series for one symbol.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.PathValue("symbol"))

	snap, err := s.orchestrator.GetSnapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.noteRefresh()

	series, ok := snap.Series[symbol]
	if !ok || len(series) == 0 {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}

	reduced := downsample.Series(series, queryInt(r, "points", s.chartPoints))
	points := make([]SeriesPoint, len(reduced))
	for i, p := range reduced {
		points[i] = SeriesPoint{TimestampMs: p.TimestampMs, Price: p.Price, OpenInterest: p.OpenInterest}
	}

	direction := "down"
	if series[len(series)-1].Price >= series[0].Price {
		direction = "up"
	}

	writeJSON(w, SeriesResponse{Symbol: symbol, Direction: direction, Points: points})
}

// handleRefresh forces a cache-bypassing snapshot acquisition.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orchestrator.ForceRefresh(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.noteRefresh()

	writeJSON(w, map[string]int{
		"targets": len(snap.Targets),
		"series":  len(snap.Series),
		"supply":  len(snap.Supply),
	})
}

func toRows(entries []*domain.RankingEntry) []RankingRow {
	rows := make([]RankingRow, len(entries))
	for i, e := range entries {
		rows[i] = RankingRow{
			Symbol:      e.Symbol,
			Intensity:   e.Intensity,
			OIGrowthUSD: e.OIGrowthUSD,
			MarketCap:   e.MarketCap,
		}
	}
	return rows
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
