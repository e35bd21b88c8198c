package reporting

import (
	"fmt"
	"math"
	"time"

	"oi-radar/internal/domain"
)

// Report represents one leaderboard snapshot.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// Universe sizes
	TargetCount int // symbols selected for tracking
	SeriesCount int // symbols that had enough data to rank

	// Leaderboards (sorted descending, truncated to top N)
	TopIntensity []*domain.RankingEntry
	TopWhale     []*domain.RankingEntry

	// Tracked symbols absent from both leaderboards, in target order.
	Remaining []string
}

// FormatCompact renders a magnitude with a K/M/B suffix, matching the
// dashboard's display convention.
func FormatCompact(num float64) string {
	abs := math.Abs(num)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", num/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.2fM", num/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", num/1_000)
	default:
		return fmt.Sprintf("%.0f", num)
	}
}
