package reporting

import (
	"fmt"
	"strings"

	"oi-radar/internal/domain"
)

// RenderCSV renders ranking entries as CSV string.
func RenderCSV(entries []*domain.RankingEntry) string {
	var sb strings.Builder

	sb.WriteString("symbol,intensity,oi_growth_usd,market_cap\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.2f,%.2f\n",
			e.Symbol, e.Intensity, e.OIGrowthUSD, e.MarketCap))
	}

	return sb.String()
}
