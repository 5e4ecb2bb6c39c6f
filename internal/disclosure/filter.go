// Package disclosure withholds small groups and blurs the counts of the ones it publishes.
package disclosure

import (
	"log/slog"

	"github.com/DeafMist/casting-pulse/internal/aggregate"
	"github.com/DeafMist/casting-pulse/internal/logger"
)

// MinGroupSize is the smallest true group size that may be published.
const MinGroupSize = 5

// Filter applies suppression followed by count perturbation.
type Filter struct {
	noise NoiseSource
	log   *slog.Logger
}

// NewFilter builds a Filter. A nil noise source means Laplace noise.
func NewFilter(noise NoiseSource, log *slog.Logger) *Filter {
	if noise == nil {
		noise = NewLaplaceNoise()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Filter{noise: noise, log: log}
}

// Apply drops every group whose true count is below MinGroupSize and replaces the count
// of each survivor with count+noise truncated toward zero. Suppression always uses the
// true count. groups is left untouched.
func (f *Filter) Apply(groups []aggregate.Group) []aggregate.Group {
	out := make([]aggregate.Group, 0, len(groups))
	suppressed := 0
	for _, g := range groups {
		if g.RoleCount < MinGroupSize {
			suppressed++
			continue
		}
		g.RoleCount = int(float64(g.RoleCount) + f.noise.Sample())
		out = append(out, g)
	}

	f.log.Debug("disclosure filter applied",
		slog.Int("groups", len(groups)),
		slog.Int("suppressed", suppressed),
		slog.Int("published", len(out)),
	)
	return out
}
