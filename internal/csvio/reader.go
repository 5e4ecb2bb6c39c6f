// Package csvio reads raw postings from, and writes the pulse table to, delimited text.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DeafMist/casting-pulse/internal/models"
)

// ErrMissingColumn reports an input header without one of the required columns.
var ErrMissingColumn = errors.New("missing required column")

// Input column names.
const (
	ColPostedDate      = "posted_date"
	ColWorkLocation    = "work_location"
	ColProjectType     = "project_type"
	ColRoleType        = "role_type"
	ColUnion           = "union"
	ColRate            = "rate"
	ColRoleDescription = "role_description"
)

var inputColumns = []string{
	ColPostedDate, ColWorkLocation, ColProjectType, ColRoleType,
	ColUnion, ColRate, ColRoleDescription,
}

// ReadFile reads every posting from the CSV file at path.
func ReadFile(path string) ([]models.RawPosting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	postings, err := ReadPostings(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return postings, nil
}

// ReadPostings parses a CSV stream with a header row. Columns are located by name, extra
// columns are ignored and short rows yield empty values.
func ReadPostings(r io.Reader) ([]models.RawPosting, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input has no header", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range inputColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	field := func(rec []string, col string) string {
		if i := index[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var postings []models.RawPosting
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		postings = append(postings, models.RawPosting{
			PostedDate:      field(rec, ColPostedDate),
			WorkLocation:    field(rec, ColWorkLocation),
			ProjectType:     field(rec, ColProjectType),
			RoleType:        field(rec, ColRoleType),
			Union:           field(rec, ColUnion),
			Rate:            field(rec, ColRate),
			RoleDescription: field(rec, ColRoleDescription),
		})
	}
	return postings, nil
}
