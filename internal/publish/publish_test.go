package publish_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/casting-pulse/internal/config"
	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/publish"
)

type recordingSink struct {
	mu    sync.Mutex
	runID string
	rows  []models.PulseRow
	err   error
}

func (s *recordingSink) Publish(_ context.Context, runID string, rows []models.PulseRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.rows = rows
	return s.err
}

var rows = []models.PulseRow{{
	Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	RegionCode:    "LA",
	ProjTypeCode:  "C",
	RoleCount:     6,
	LeadSharePct:  50,
	UnionSharePct: 100,
	MedianRateUSD: 125,
}}

func TestPublishWritesCSVAndSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "pulse.csv")
	p := publish.New(path, nil)
	a, b := &recordingSink{}, &recordingSink{}
	p.AddSink("a", a)
	p.AddSink("b", b)

	require.NoError(t, p.Publish(context.Background(), "run-1", rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "2024-01-01,LA,C,6,50.0,100.0,125,0.0,0.0\n"))

	for _, s := range []*recordingSink{a, b} {
		require.Equal(t, "run-1", s.runID)
		require.Equal(t, rows, s.rows)
	}
}

func TestPublishReportsSinkFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.csv")
	p := publish.New(path, nil)
	boom := errors.New("boom")
	p.AddSink("search", &recordingSink{err: boom})

	err := p.Publish(context.Background(), "run-2", rows)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "publish to search")

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "csv is written before secondary sinks")
}

func TestPublishSkipsSinksWhenCSVFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	sink := &recordingSink{}
	p := publish.New(filepath.Join(blocker, "pulse.csv"), nil)
	p.AddSink("a", sink)

	require.Error(t, p.Publish(context.Background(), "run-3", rows))
	require.Empty(t, sink.runID)
}

func TestOpenWithoutSinks(t *testing.T) {
	p, err := publish.Open(context.Background(), filepath.Join(t.TempDir(), "p.csv"), config.Sinks{}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "run-4", nil))
	require.NoError(t, p.Close())
}
