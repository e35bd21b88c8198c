package domain

import "strings"

// SamplePoint is one observation of a perpetual contract.
// Corresponds to one row in the market_samples table.
type SamplePoint struct {
	Symbol       string  // upper-case ticker, e.g. "BTCUSDT"
	TimestampMs  int64   // Unix timestamp in milliseconds
	Price        float64 // mark price in quote currency
	OpenInterest float64 // open interest in contract units
}

// SymbolSeries is the ordered sample history of a single symbol,
// strictly non-decreasing by TimestampMs.
type SymbolSeries []*SamplePoint

// Last returns the most recent point, or nil for an empty series.
func (s SymbolSeries) Last() *SamplePoint {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// MinOpenInterest returns the lowest open interest observed across the series.
// Returns 0 for an empty series.
func (s SymbolSeries) MinOpenInterest() float64 {
	if len(s) == 0 {
		return 0
	}
	min := s[0].OpenInterest
	for _, p := range s[1:] {
		if p.OpenInterest < min {
			min = p.OpenInterest
		}
	}
	return min
}

// SupplyRecord carries static reference data for one symbol.
// Numeric fields are nil when the source had no usable value; a value
// that failed to parse upstream is treated the same as an absent one.
type SupplyRecord struct {
	Symbol            string
	CirculatingSupply *float64
	MarketCap         *float64
}

// RankingEntry is the derived ranking row for one symbol. Entries are
// rebuilt wholesale on every refresh and never mutated in place.
type RankingEntry struct {
	Symbol      string
	Intensity   float64 // OI growth normalized by market cap (or damped proxy)
	OIGrowthUSD float64 // notional rise from the window's lowest OI to the latest
	MarketCap   float64 // 0 when no capitalization reference exists
}

// Snapshot is the joined result of one acquisition cycle. Targets keeps
// the server-side universe ordering; Series holds only symbols whose
// fetch succeeded, so Series keys are a subset of Targets.
type Snapshot struct {
	Supply  map[string]*SupplyRecord
	Series  map[string]SymbolSeries
	Targets []string
}

// Empty reports whether the snapshot carries no symbols at all.
// An empty snapshot is a valid terminal state, not an error.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Targets) == 0
}

// NormalizeSymbol upper-cases and trims a raw ticker identifier.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
