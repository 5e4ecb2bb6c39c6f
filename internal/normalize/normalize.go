// Package normalize generalizes raw postings into coarse categorical codes and
// derives the per-posting features the pulse is built from.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/rounding"
)

var (
	// ErrInvalidDate reports a posted_date that cannot be turned into a calendar date.
	ErrInvalidDate = errors.New("invalid posted_date")
	// ErrMissingDate reports a blank posted_date. Such postings have no group and are skipped.
	ErrMissingDate = errors.New("missing posted_date")
)

var aiTheme = regexp.MustCompile(`\b(ai|robot|android)\b`)

var leadRoles = map[string]struct{}{"Lead": {}, "Principal": {}}

var unionStatuses = map[string]struct{}{
	"union": {}, "sag-aftra": {}, "aftra": {}, "sag": {},
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
	"01/02/2006",
}

// IsLead reports whether the role type is one of the lead billings.
func IsLead(roleType string) bool {
	_, ok := leadRoles[roleType]
	return ok
}

// IsUnionRole reports whether the union status names a recognised union.
func IsUnionRole(status string) bool {
	_, ok := unionStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// ParseRate concatenates every decimal digit of rate, in order, and parses the result.
// "$1,250" is 1250 and "$12-$100" is 12100. No digits, or a value that does not fit an
// int64, yields 0.
func ParseRate(rate string) int64 {
	var b strings.Builder
	for i := 0; i < len(rate); i++ {
		if c := rate[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ContainsAITheme reports whether text mentions ai, robot or android as a whole word.
func ContainsAITheme(text string) bool {
	if text == "" {
		return false
	}
	return aiTheme.MatchString(strings.ToLower(text))
}

// SentimentScore scores text with the default VADER model.
func SentimentScore(text string) float64 {
	return sentimentScore(defaultScorer(), text)
}

func sentimentScore(s Scorer, text string) float64 {
	if text == "" {
		return 0
	}
	p := s.Polarity(text)
	if math.IsNaN(p) {
		return 0
	}
	return rounding.Decimals(math.Max(-1, math.Min(1, p)), 2)
}

// ParseDate truncates a posted_date to its calendar date, read in the timestamp's own offset.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMissingDate
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			y, m, d := ts.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// Normalizer turns raw postings into normalized postings.
type Normalizer struct {
	scorer Scorer
}

// New returns a Normalizer using scorer, or VADER when scorer is nil.
func New(scorer Scorer) *Normalizer {
	if scorer == nil {
		scorer = defaultScorer()
	}
	return &Normalizer{scorer: scorer}
}

// Normalize derives every generalized field of one posting. Only the date can fail.
func (n *Normalizer) Normalize(raw models.RawPosting) (models.Posting, error) {
	date, err := ParseDate(raw.PostedDate)
	if err != nil {
		return models.Posting{}, err
	}
	return models.Posting{
		Date:         date,
		RegionCode:   MapRegion(raw.WorkLocation),
		ProjTypeCode: MapProjType(raw.ProjectType),
		IsLead:       IsLead(raw.RoleType),
		IsUnion:      IsUnionRole(raw.Union),
		RateValue:    ParseRate(raw.Rate),
		Sentiment:    sentimentScore(n.scorer, raw.RoleDescription),
		ThemeAI:      ContainsAITheme(raw.RoleDescription),
	}, nil
}

// NormalizeAll normalizes raws in order and stops at the first invalid date. Postings
// without a date are left out; the second result counts them.
func (n *Normalizer) NormalizeAll(raws []models.RawPosting) ([]models.Posting, int, error) {
	out := make([]models.Posting, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		p, err := n.Normalize(raw)
		if errors.Is(err, ErrMissingDate) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, skipped, nil
}
