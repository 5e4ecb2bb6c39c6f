// Package publish hands a finished pulse table to its sinks.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/casting-pulse/internal/config"
	"github.com/DeafMist/casting-pulse/internal/csvio"
	"github.com/DeafMist/casting-pulse/internal/elasticsearch"
	"github.com/DeafMist/casting-pulse/internal/logger"
	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/storage"
)

// Sink receives the complete, ordered pulse table of one run.
type Sink interface {
	Publish(ctx context.Context, runID string, rows []models.PulseRow) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, runID string, rows []models.PulseRow) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, runID string, rows []models.PulseRow) error {
	return f(ctx, runID, rows)
}

// Publisher writes the CSV output first and then feeds the optional sinks concurrently.
type Publisher struct {
	outputPath string
	sinks      map[string]Sink
	closers    []func() error
	log        *slog.Logger
}

// New returns a Publisher that writes only the CSV file.
func New(outputPath string, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}
	return &Publisher{outputPath: outputPath, sinks: map[string]Sink{}, log: log}
}

// AddSink registers a secondary sink under name.
func (p *Publisher) AddSink(name string, s Sink) {
	p.sinks[name] = s
}

// Open builds a Publisher with every sink enabled in cfg.
func Open(ctx context.Context, outputPath string, cfg config.Sinks, log *slog.Logger) (*Publisher, error) {
	p := New(outputPath, log)

	if cfg.ElasticsearchAddr != "" {
		es, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, p.log)
		if err != nil {
			return nil, err
		}
		if err := es.Ping(ctx); err != nil {
			return nil, err
		}
		p.AddSink("elasticsearch", SinkFunc(es.IndexRows))
	}

	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DatabaseURL, p.log)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pg.Close)
		if err := pg.CreateTable(ctx); err != nil {
			_ = p.Close()
			return nil, err
		}
		p.AddSink("postgres", SinkFunc(pg.Upsert))
	}

	return p, nil
}

// Publish writes rows to the CSV output, then to every secondary sink. The CSV is the
// record of the run; a secondary sink failure is reported after all sinks finished.
func (p *Publisher) Publish(ctx context.Context, runID string, rows []models.PulseRow) error {
	if err := csvio.WriteFile(p.outputPath, rows); err != nil {
		return err
	}
	p.log.Info("pulse written", slog.String("path", p.outputPath), slog.Int("rows", len(rows)))

	names := make([]string, 0, len(p.sinks))
	for name := range p.sinks {
		names = append(names, name)
	}
	sort.Strings(names)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		sink := p.sinks[name]
		g.Go(func() error {
			if err := sink.Publish(gctx, runID, rows); err != nil {
				return fmt.Errorf("publish to %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases sink connections.
func (p *Publisher) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
