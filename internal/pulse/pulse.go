// Package pulse runs the normalize, aggregate, disclosure and sequence stages over one
// batch of raw postings.
package pulse

import (
	"log/slog"

	"github.com/DeafMist/casting-pulse/internal/aggregate"
	"github.com/DeafMist/casting-pulse/internal/disclosure"
	"github.com/DeafMist/casting-pulse/internal/logger"
	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/normalize"
)

// Builder composes the pipeline stages.
type Builder struct {
	normalizer *normalize.Normalizer
	filter     *disclosure.Filter
	log        *slog.Logger
}

// Option customises a Builder.
type Option func(*Builder)

// WithScorer replaces the default sentiment model.
func WithScorer(s normalize.Scorer) Option {
	return func(b *Builder) { b.normalizer = normalize.New(s) }
}

// WithNoise replaces the Laplace noise source.
func WithNoise(n disclosure.NoiseSource) Option {
	return func(b *Builder) { b.filter = disclosure.NewFilter(n, b.log) }
}

// NewBuilder returns a Builder with the production stages.
func NewBuilder(log *slog.Logger, opts ...Option) *Builder {
	if log == nil {
		log = logger.Discard()
	}
	b := &Builder{log: log}
	for _, opt := range opts {
		opt(b)
	}
	if b.normalizer == nil {
		b.normalizer = normalize.New(nil)
	}
	if b.filter == nil {
		b.filter = disclosure.NewFilter(nil, log)
	}
	return b
}

// Build turns raw postings into the ordered, disclosure-controlled pulse. Postings with a
// blank date are dropped. It fails only when a posting date cannot be parsed, in which
// case no rows are returned.
func (b *Builder) Build(raws []models.RawPosting) ([]models.PulseRow, error) {
	postings, skipped, err := b.normalizer.NormalizeAll(raws)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		b.log.Warn("postings without posted_date skipped", slog.Int("skipped", skipped))
	}

	groups := aggregate.Aggregate(postings)
	published := b.filter.Apply(groups)
	rows := Sequence(published)

	b.log.Info("pulse built",
		slog.Int("postings", len(postings)),
		slog.Int("groups", len(groups)),
		slog.Int("rows", len(rows)),
	)
	return rows, nil
}
