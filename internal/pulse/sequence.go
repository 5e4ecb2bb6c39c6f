package pulse

import (
	"sort"

	"github.com/DeafMist/casting-pulse/internal/aggregate"
	"github.com/DeafMist/casting-pulse/internal/models"
)

// Sequence orders groups by date, region code and project-type code and converts them
// to output rows. groups is not reordered.
func Sequence(groups []aggregate.Group) []models.PulseRow {
	sorted := make([]aggregate.Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.Less(sorted[j].Key)
	})

	rows := make([]models.PulseRow, 0, len(sorted))
	for _, g := range sorted {
		rows = append(rows, models.PulseRow{
			Date:            g.Date,
			RegionCode:      g.RegionCode,
			ProjTypeCode:    g.ProjTypeCode,
			RoleCount:       g.RoleCount,
			LeadSharePct:    g.LeadSharePct,
			UnionSharePct:   g.UnionSharePct,
			MedianRateUSD:   g.MedianRateUSD,
			SentimentAvg:    g.SentimentAvg,
			ThemeAISharePct: g.ThemeAISharePct,
		})
	}
	return rows
}
