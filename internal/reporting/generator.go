package reporting

import (
	"context"
	"time"

	"oi-radar/internal/domain"
	"oi-radar/internal/ranking"
)

// DefaultTopN is the leaderboard length.
const DefaultTopN = 10

// SnapshotSource provides the acquired market snapshot.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

// Generator produces leaderboard reports from snapshots.
type Generator struct {
	source SnapshotSource
	calc   *ranking.Calculator
	topN   int
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(source SnapshotSource, calc *ranking.Calculator) *Generator {
	return &Generator{
		source: source,
		calc:   calc,
		topN:   DefaultTopN,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithTopN sets the leaderboard length.
func (g *Generator) WithTopN(n int) *Generator {
	g.topN = n
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate acquires a snapshot and builds the two leaderboards.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	snap, err := g.source.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	entries := g.calc.Compute(snap)
	topIntensity := ranking.TopByIntensity(entries, g.topN)
	topWhale := ranking.TopByGrowth(entries, g.topN)

	listed := make(map[string]struct{}, len(topIntensity)+len(topWhale))
	for _, e := range topIntensity {
		listed[e.Symbol] = struct{}{}
	}
	for _, e := range topWhale {
		listed[e.Symbol] = struct{}{}
	}

	var remaining []string
	for _, symbol := range snap.Targets {
		if _, ok := listed[symbol]; !ok {
			remaining = append(remaining, symbol)
		}
	}

	return &Report{
		GeneratedAt:  g.now(),
		TargetCount:  len(snap.Targets),
		SeriesCount:  len(entries),
		TopIntensity: topIntensity,
		TopWhale:     topWhale,
		Remaining:    remaining,
	}, nil
}
