package models

import "time"

// RawPosting is one job posting as supplied by an input source. Empty strings stand for
// missing values.
type RawPosting struct {
	PostedDate      string `json:"posted_date"`
	WorkLocation    string `json:"work_location"`
	ProjectType     string `json:"project_type"`
	RoleType        string `json:"role_type"`
	Union           string `json:"union"`
	Rate            string `json:"rate"`
	RoleDescription string `json:"role_description"`
}

// Posting is the generalized form of a RawPosting.
type Posting struct {
	Date         time.Time
	RegionCode   string
	ProjTypeCode string
	IsLead       bool
	IsUnion      bool
	RateValue    int64
	Sentiment    float64
	ThemeAI      bool
}

// PulseRow is one published line of the daily pulse.
type PulseRow struct {
	Date            time.Time `json:"date_utc"`
	RegionCode      string    `json:"region_code"`
	ProjTypeCode    string    `json:"proj_type_code"`
	RoleCount       int       `json:"role_count_day"`
	LeadSharePct    float64   `json:"lead_share_pct_day"`
	UnionSharePct   float64   `json:"union_share_pct_day"`
	MedianRateUSD   int64     `json:"median_rate_day_usd"`
	SentimentAvg    float64   `json:"sentiment_avg_day"`
	ThemeAISharePct float64   `json:"theme_ai_share_pct_day"`
}

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// ID identifies the row by its group key so a day can be re-published in place.
func (r PulseRow) ID() string {
	return r.Date.Format(DateLayout) + "|" + r.RegionCode + "|" + r.ProjTypeCode
}
