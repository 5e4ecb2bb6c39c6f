package normalize_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/normalize"
)

func TestMapRegion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Los Angeles", want: "LA"},
		{in: "Hollywood", want: "LA"},
		{in: "Brooklyn", want: "NY"},
		{in: "Atlanta", want: "GA"},
		{in: "Chicago", want: "CH"},
		{in: "Miami", want: "FL"},
		{in: "San Francisco", want: "SF"},
		{in: "Seattle", want: "NW"},
		{in: "Austin", want: "TX"},
		{in: "los angeles", want: "OTH"},
		{in: " Los Angeles", want: "OTH"},
		{in: "Toronto", want: "OTH"},
		{in: "", want: "OTH"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.MapRegion(tt.in))
		})
	}
}

func TestMapProjType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Feature Film", want: "F"},
		{in: "Short Film", want: "F"},
		{in: "TV", want: "T"},
		{in: "Streaming", want: "T"},
		{in: "Commercial", want: "C"},
		{in: "Ad", want: "C"},
		{in: "Podcast", want: "V"},
		{in: "commercial", want: "O"},
		{in: "Music Video", want: "O"},
		{in: "", want: "O"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.MapProjType(tt.in))
		})
	}
}

func TestCodesStayInsideEnumerations(t *testing.T) {
	inputs := []string{"", "Los Angeles", "Queens", "Film", "TV", "Voiceover", "???", "Paris", "Ad "}
	for _, in := range inputs {
		require.Contains(t, normalize.RegionCodes, normalize.MapRegion(in))
		require.Contains(t, normalize.ProjTypeCodes, normalize.MapProjType(in))
	}
}

func TestIsLead(t *testing.T) {
	require.True(t, normalize.IsLead("Lead"))
	require.True(t, normalize.IsLead("Principal"))
	require.False(t, normalize.IsLead("lead"))
	require.False(t, normalize.IsLead("Supporting"))
	require.False(t, normalize.IsLead(""))
}

func TestIsUnionRole(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "SAG-AFTRA", want: true},
		{in: "  union ", want: true},
		{in: "Aftra", want: true},
		{in: "sag", want: true},
		{in: "Non-Union", want: false},
		{in: "SAG eligible", want: false},
		{in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.IsUnionRole(tt.in))
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{name: "thousands separator", in: "$1,250", want: 1250},
		{name: "not available", in: "N/A", want: 0},
		{name: "missing", in: "", want: 0},
		{name: "unit suffix", in: "$150/day", want: 150},
		{name: "range concatenates digits", in: "$12-$100", want: 12100},
		{name: "decimal point dropped", in: "$99.50", want: 9950},
		{name: "overflow", in: "99999999999999999999999", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.ParseRate(tt.in))
		})
	}
}

func TestContainsAITheme(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "We need an AI assistant", want: true},
		{in: "Airport security role", want: false},
		{in: "Brainstorm session host", want: false},
		{in: "Play a ROBOT butler", want: true},
		{in: "android, humanoid", want: true},
		{in: "Androids everywhere", want: false},
		{in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.ContainsAITheme(tt.in))
		})
	}
}

func TestSentimentScore(t *testing.T) {
	require.Zero(t, normalize.SentimentScore(""))
	require.Zero(t, normalize.SentimentScore("Background roles on Tuesday"))
	require.Greater(t, normalize.SentimentScore("A great, wonderful role with a friendly crew"), 0.0)
	require.Less(t, normalize.SentimentScore("Terrible hours and awful, rude producers"), 0.0)

	for _, in := range []string{"Amazing!!! Best gig ever, love it", "horrible HORRIBLE horrible", "ok"} {
		got := normalize.SentimentScore(in)
		require.GreaterOrEqual(t, got, -1.0, in)
		require.LessOrEqual(t, got, 1.0, in)
		require.InDelta(t, math.Round(got*100), got*100, 1e-9, "two decimals: %s", in)
	}
}

func lexicon(t *testing.T) normalize.Scorer {
	t.Helper()
	s, err := normalize.ScorerByName(normalize.ModelLexicon)
	require.NoError(t, err)
	return s
}

func TestLexiconScorer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "empty", in: "", want: 0},
		{name: "neutral", in: "Looking for background extras", want: 0},
		{name: "positive", in: "A great role", want: 0.8},
		{name: "intensified", in: "Very good pay", want: 0.91},
		{name: "negated", in: "Not a good fit for beginners", want: -0.35},
		{name: "clamped", in: "Extremely perfect", want: 1},
		{name: "averaged and rounded", in: "great and nice and happy", want: 0.73},
		{name: "mixed", in: "good and bad", want: 0},
	}

	n := normalize.New(lexicon(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Normalize(models.RawPosting{PostedDate: "2024-01-01", RoleDescription: tt.in})
			require.NoError(t, err)
			require.InDelta(t, tt.want, p.Sentiment, 1e-9)
		})
	}
}

func TestScorerByName(t *testing.T) {
	for _, name := range []string{"", "vader", " VADER "} {
		s, err := normalize.ScorerByName(name)
		require.NoError(t, err, name)
		require.IsType(t, &normalize.VaderScorer{}, s)
	}

	s, err := normalize.ScorerByName("lexicon")
	require.NoError(t, err)
	require.IsType(t, &normalize.LexiconScorer{}, s)

	_, err = normalize.ScorerByName("tea-leaves")
	require.ErrorContains(t, err, "unknown sentiment model")
}

func TestNewLexiconScorerRejectsBadInput(t *testing.T) {
	_, err := normalize.NewLexiconScorer([]byte("polarity: {}"))
	require.Error(t, err)

	_, err = normalize.NewLexiconScorer([]byte("polarity: {great: 3}"))
	require.ErrorContains(t, err, "out of range")
}

type fixedScorer float64

func (f fixedScorer) Polarity(string) float64 { return float64(f) }

func TestNormalizerUsesInjectedScorer(t *testing.T) {
	n := normalize.New(fixedScorer(0.456))
	p, err := n.Normalize(models.RawPosting{PostedDate: "2024-01-01", RoleDescription: "anything"})
	require.NoError(t, err)
	require.Equal(t, 0.46, p.Sentiment)

	p, err = normalize.New(fixedScorer(7)).Normalize(models.RawPosting{PostedDate: "2024-01-01", RoleDescription: "x"})
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Sentiment)

	p, err = n.Normalize(models.RawPosting{PostedDate: "2024-01-01"})
	require.NoError(t, err)
	require.Equal(t, 0.0, p.Sentiment)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-01-02",
		"2024-01-02 23:59:59",
		"2024-01-02T08:00:00",
		"2024-01-02T23:30:00-08:00",
		"2024-01-02T04:05:06.789Z",
		"01/02/2024",
	} {
		got, err := normalize.ParseDate(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"yesterday", "2024-13-45"} {
		_, err := normalize.ParseDate(in)
		require.ErrorIs(t, err, normalize.ErrInvalidDate, in)
	}

	for _, in := range []string{"", "   "} {
		_, err := normalize.ParseDate(in)
		require.ErrorIs(t, err, normalize.ErrMissingDate, in)
		require.NotErrorIs(t, err, normalize.ErrInvalidDate, in)
	}
}

func TestNormalize(t *testing.T) {
	raw := models.RawPosting{
		PostedDate:      "2024-03-05T10:00:00Z",
		WorkLocation:    "Santa Monica",
		ProjectType:     "Series",
		RoleType:        "Principal",
		Union:           "SAG-AFTRA",
		Rate:            "$1,200/day",
		RoleDescription: "Great part playing an AI detective",
	}

	got, err := normalize.New(lexicon(t)).Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, models.Posting{
		Date:         time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		RegionCode:   "LA",
		ProjTypeCode: "T",
		IsLead:       true,
		IsUnion:      true,
		RateValue:    1200,
		Sentiment:    0.8,
		ThemeAI:      true,
	}, got)
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	got, err := normalize.New(nil).Normalize(models.RawPosting{PostedDate: "2024-03-05"})
	require.NoError(t, err)
	require.Equal(t, "OTH", got.RegionCode)
	require.Equal(t, "O", got.ProjTypeCode)
	require.False(t, got.IsLead)
	require.False(t, got.IsUnion)
	require.Zero(t, got.RateValue)
	require.Zero(t, got.Sentiment)
	require.False(t, got.ThemeAI)
}

func TestNormalizeIsStable(t *testing.T) {
	raw := models.RawPosting{
		PostedDate:      "2024-03-05",
		WorkLocation:    "Queens",
		ProjectType:     "Ad",
		RoleType:        "Lead",
		Union:           "union",
		Rate:            "$300",
		RoleDescription: "Wonderful, friendly crew. Robot costume provided.",
	}
	n := normalize.New(nil)
	first, err := n.Normalize(raw)
	require.NoError(t, err)
	second, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Feeding derived codes back in as raw values must not drift.
	again, err := n.Normalize(models.RawPosting{
		PostedDate: first.Date.Format(models.DateLayout),
		Union:      raw.Union,
		Rate:       "300",
		RoleType:   raw.RoleType,
	})
	require.NoError(t, err)
	require.Equal(t, first.Date, again.Date)
	require.Equal(t, first.RateValue, again.RateValue)
	require.Equal(t, first.IsLead, again.IsLead)
	require.Equal(t, first.IsUnion, again.IsUnion)
}

func TestNormalizeAllReportsRow(t *testing.T) {
	raws := []models.RawPosting{
		{PostedDate: "2024-01-01"},
		{PostedDate: "not a date"},
	}
	_, _, err := normalize.New(nil).NormalizeAll(raws)
	require.Error(t, err)
	require.True(t, errors.Is(err, normalize.ErrInvalidDate))
	require.Contains(t, err.Error(), "row 2")

	out, skipped, err := normalize.New(nil).NormalizeAll(nil)
	require.NoError(t, err)
	require.Empty(t, out)
	require.Zero(t, skipped)
}

func TestNormalizeAllSkipsMissingDates(t *testing.T) {
	raws := []models.RawPosting{
		{PostedDate: "2024-01-01", WorkLocation: "Miami"},
		{PostedDate: "", WorkLocation: "Miami"},
		{PostedDate: "  ", WorkLocation: "Miami"},
		{PostedDate: "2024-01-02", WorkLocation: "Miami"},
	}
	out, skipped, err := normalize.New(nil).NormalizeAll(raws)
	require.NoError(t, err)
	require.Equal(t, 2, skipped)
	require.Len(t, out, 2)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), out[1].Date)
}
