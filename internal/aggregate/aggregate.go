// Package aggregate reduces normalized postings to per-day, per-region, per-category groups.
package aggregate

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/rounding"
)

// Rounding steps for the published statistics.
const (
	RateStep      = 25.0
	SentimentStep = 0.05
	SharePlaces   = 1
)

// Key identifies a group.
type Key struct {
	Date         time.Time
	RegionCode   string
	ProjTypeCode string
}

// Less orders keys by date, then region code, then project-type code.
func (k Key) Less(o Key) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	if k.RegionCode != o.RegionCode {
		return k.RegionCode < o.RegionCode
	}
	return k.ProjTypeCode < o.ProjTypeCode
}

// Group holds the finalized statistics of one key.
type Group struct {
	Key
	RoleCount       int
	LeadSharePct    float64
	UnionSharePct   float64
	MedianRateUSD   int64
	SentimentAvg    float64
	ThemeAISharePct float64
}

type accumulator struct {
	count      int
	leads      int
	unions     int
	themes     int
	rates      []float64
	sentiments []float64
}

func (a *accumulator) add(p models.Posting) {
	a.count++
	if p.IsLead {
		a.leads++
	}
	if p.IsUnion {
		a.unions++
	}
	if p.ThemeAI {
		a.themes++
	}
	a.rates = append(a.rates, float64(p.RateValue))
	a.sentiments = append(a.sentiments, p.Sentiment)
}

func (a *accumulator) finalize(k Key) Group {
	return Group{
		Key:             k,
		RoleCount:       a.count,
		LeadSharePct:    share(a.leads, a.count),
		UnionSharePct:   share(a.unions, a.count),
		MedianRateUSD:   int64(rounding.ToMultiple(Median(a.rates), RateStep)),
		SentimentAvg:    rounding.ToMultiple(stat.Mean(a.sentiments, nil), SentimentStep),
		ThemeAISharePct: share(a.themes, a.count),
	}
}

// Aggregate groups postings by key and computes each group's statistics. The order of
// the returned groups is unspecified.
func Aggregate(postings []models.Posting) []Group {
	accs := make(map[Key]*accumulator)
	for _, p := range postings {
		k := Key{Date: p.Date, RegionCode: p.RegionCode, ProjTypeCode: p.ProjTypeCode}
		acc, ok := accs[k]
		if !ok {
			acc = &accumulator{}
			accs[k] = acc
		}
		acc.add(p)
	}

	groups := make([]Group, 0, len(accs))
	for k, acc := range accs {
		groups = append(groups, acc.finalize(k))
	}
	return groups
}

// Median returns the middle value of xs, averaging the two middle values when len(xs)
// is even. xs is not modified. An empty slice has median 0.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return rounding.Decimals(100*float64(part)/float64(total), SharePlaces)
}
