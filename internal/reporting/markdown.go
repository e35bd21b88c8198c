package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# OI Surge Radar\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Tracked symbols: %d | Ranked: %d\n\n", r.TargetCount, r.SeriesCount))

	// Intensity leaderboard
	sb.WriteString("## Surge Intensity\n\n")
	if len(r.TopIntensity) > 0 {
		sb.WriteString("| Rank | Symbol | Intensity | OI Growth | Market Cap |\n")
		sb.WriteString("|------|--------|-----------|-----------|------------|\n")
		for i, e := range r.TopIntensity {
			cap := "-"
			if e.MarketCap > 0 {
				cap = "$" + FormatCompact(e.MarketCap)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f%% | +$%s | %s |\n",
				i+1, e.Symbol, e.Intensity*100, FormatCompact(e.OIGrowthUSD), cap))
		}
	} else {
		sb.WriteString("No ranked symbols.\n")
	}
	sb.WriteString("\n")

	// Whale leaderboard
	sb.WriteString("## Whale Inflow\n\n")
	if len(r.TopWhale) > 0 {
		sb.WriteString("| Rank | Symbol | OI Growth | Intensity |\n")
		sb.WriteString("|------|--------|-----------|-----------|\n")
		for i, e := range r.TopWhale {
			sb.WriteString(fmt.Sprintf("| %d | %s | +$%s | %.2f%% |\n",
				i+1, e.Symbol, FormatCompact(e.OIGrowthUSD), e.Intensity*100))
		}
	} else {
		sb.WriteString("No ranked symbols.\n")
	}
	sb.WriteString("\n")

	// Remaining tracked symbols
	sb.WriteString("## Remaining Symbols\n\n")
	if len(r.Remaining) > 0 {
		sb.WriteString(strings.Join(r.Remaining, ", "))
		sb.WriteString("\n")
	} else {
		sb.WriteString("All tracked symbols are listed above.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
