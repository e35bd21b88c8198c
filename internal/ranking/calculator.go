// Package ranking derives the intensity and absolute-flow rankings from an
// acquisition snapshot.
package ranking

import (
	"sort"

	"oi-radar/internal/domain"
	"oi-radar/internal/observability"
)

// DefaultFallbackDamping scales the OI-relative intensity proxy used when no
// capitalization reference exists. Raw OI-relative growth is a noisier signal
// than a capitalization-normalized one, so it is damped rather than allowed
// to dominate the ranking. Tunable, not derived.
const DefaultFallbackDamping = 0.1

// Calculator computes ranking entries from a snapshot. It holds no state
// beyond configuration; Compute is a pure function of its input.
type Calculator struct {
	damping float64
}

// NewCalculator creates a Calculator with the default damping factor.
func NewCalculator() *Calculator {
	return &Calculator{damping: DefaultFallbackDamping}
}

// WithDamping overrides the fallback damping factor.
func (c *Calculator) WithDamping(damping float64) *Calculator {
	c.damping = damping
	return c
}

// Compute produces one RankingEntry per eligible symbol. Symbols are visited
// in snapshot target order so the output is deterministic for a fixed
// snapshot. Symbols with fewer than two samples carry no usable signal and
// are skipped.
func (c *Calculator) Compute(snap *domain.Snapshot) []*domain.RankingEntry {
	if snap == nil {
		return nil
	}

	entries := make([]*domain.RankingEntry, 0, len(snap.Series))
	for _, sym := range snap.Targets {
		series, ok := snap.Series[sym]
		if !ok || len(series) < 2 {
			continue
		}

		last := series.Last()
		currentPrice := last.Price
		currentOI := last.OpenInterest
		minOI := series.MinOpenInterest()

		// Notional rise from the window's lowest observed OI to the latest;
		// non-negative by construction.
		oiGrowthUSD := (currentOI - minOI) * currentPrice

		marketCap := resolveMarketCap(snap.Supply[sym], currentPrice)

		var intensity float64
		switch {
		case marketCap > 0:
			intensity = oiGrowthUSD / marketCap
		case minOI > 0:
			intensity = ((currentOI - minOI) / minOI) * c.damping
		}

		entries = append(entries, &domain.RankingEntry{
			Symbol:      sym,
			Intensity:   intensity,
			OIGrowthUSD: oiGrowthUSD,
			MarketCap:   marketCap,
		})
	}

	observability.UpdateRankingSizes(len(snap.Targets), len(entries))
	return entries
}

// resolveMarketCap applies the capitalization priority chain: a positive
// circulating supply gives a dynamic, price-responsive cap; otherwise a
// positive static market cap is used directly; otherwise 0 (unknown).
func resolveMarketCap(record *domain.SupplyRecord, currentPrice float64) float64 {
	if record == nil {
		return 0
	}
	if record.CirculatingSupply != nil && *record.CirculatingSupply > 0 {
		return *record.CirculatingSupply * currentPrice
	}
	if record.MarketCap != nil && *record.MarketCap > 0 {
		return *record.MarketCap
	}
	return 0
}

// TopByIntensity returns the top-n entries by descending intensity. The sort
// is stable over the input order and works on a copy, leaving the shared
// entry slice untouched.
func TopByIntensity(entries []*domain.RankingEntry, n int) []*domain.RankingEntry {
	return top(entries, n, func(a, b *domain.RankingEntry) bool {
		return a.Intensity > b.Intensity
	})
}

// TopByGrowth returns the top-n entries by descending notional OI growth.
func TopByGrowth(entries []*domain.RankingEntry, n int) []*domain.RankingEntry {
	return top(entries, n, func(a, b *domain.RankingEntry) bool {
		return a.OIGrowthUSD > b.OIGrowthUSD
	})
}

func top(entries []*domain.RankingEntry, n int, less func(a, b *domain.RankingEntry) bool) []*domain.RankingEntry {
	sorted := make([]*domain.RankingEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
