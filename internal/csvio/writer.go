package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DeafMist/casting-pulse/internal/models"
)

// Header is the output column order.
var Header = []string{
	"date_utc", "region_code", "proj_type_code", "role_count_day",
	"lead_share_pct_day", "union_share_pct_day", "median_rate_day_usd",
	"sentiment_avg_day", "theme_ai_share_pct_day",
}

// WriteFile writes rows to path, creating the parent directory first. The rows go to a
// temporary file in the same directory that replaces path only once fully written, so a
// failed write never leaves a partial table behind.
func WriteFile(path string, rows []models.PulseRow) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err := WriteRows(f, rows); err != nil {
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}
	return nil
}

// WriteRows writes the header followed by one line per row.
func WriteRows(w io.Writer, rows []models.PulseRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(FormatRow(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatRow renders a row in Header order.
func FormatRow(r models.PulseRow) []string {
	return []string{
		r.Date.Format(models.DateLayout),
		r.RegionCode,
		r.ProjTypeCode,
		strconv.Itoa(r.RoleCount),
		strconv.FormatFloat(r.LeadSharePct, 'f', 1, 64),
		strconv.FormatFloat(r.UnionSharePct, 'f', 1, 64),
		strconv.FormatInt(r.MedianRateUSD, 10),
		formatDecimal(r.SentimentAvg),
		strconv.FormatFloat(r.ThemeAISharePct, 'f', 1, 64),
	}
}

// formatDecimal prints the shortest form of v that keeps at least one fractional digit.
func formatDecimal(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
