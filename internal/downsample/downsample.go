// Package downsample bounds series size for rendering without distorting
// trend shape.
package downsample

import "oi-radar/internal/domain"

// DefaultTargetPoints is the chart rendering budget.
const DefaultTargetPoints = 400

// Series selects a bounded subsequence of the input by positional stride,
// preserving order and never altering timestamps or values. Inputs within
// 1.5x of the target are returned unchanged; otherwise every stride-th point
// is kept and the final observation is appended if the stride skipped it,
// so the visual series always ends at the most recent point.
func Series(series domain.SymbolSeries, targetPoints int) domain.SymbolSeries {
	if targetPoints <= 0 {
		return series
	}
	// len <= 1.5 * target, kept in integer arithmetic.
	if 2*len(series) <= 3*targetPoints {
		return series
	}

	stride := len(series) / targetPoints
	out := make(domain.SymbolSeries, 0, targetPoints+1)
	for i := 0; i < len(series); i += stride {
		out = append(out, series[i])
	}

	last := series[len(series)-1]
	if out[len(out)-1] != last {
		out = append(out, last)
	}

	return out
}
