package threshold

import (
	"context"
	"log/slog"
)

// Posterior holds the Beta-distribution parameters learned from duplicate
// feedback for one repository.
type Posterior struct {
	Alpha       float64
	Beta        float64
	SampleCount int
}

// Mean returns the posterior mean alpha / (alpha + beta).
func (p Posterior) Mean() float64 {
	total := p.Alpha + p.Beta
	if total == 0 {
		return 0
	}
	return p.Alpha / total
}

// PosteriorStore reads learned thresholds. Returns (nil, nil) when no
// posterior has accrued for the repo yet.
type PosteriorStore interface {
	GetPosterior(ctx context.Context, repo string) (*Posterior, error)
}

// Resolution is the effective threshold for one decision plus its provenance.
type Resolution struct {
	Threshold float64
	// Source is MethodLearned when a posterior was used, otherwise the
	// engine's method for this input.
	Source Method
	// Engine-derived detail; zero-valued when Source is MethodLearned.
	CandidateCount int
	GapSize        float64
	GapIndex       int
	// Posterior detail; zero-valued unless Source is MethodLearned.
	Alpha       float64
	Beta        float64
	SampleCount int
}

// Resolver decides the effective similarity threshold for a repository,
// preferring a learned posterior over the adaptive engine when one exists
// with enough feedback behind it.
type Resolver struct {
	posteriors PosteriorStore
	engineCfg  EngineConfig
	// minSamples is the feedback count below which a posterior is ignored.
	minSamples int
	// disableLearned forces the adaptive/configured path even when a
	// posterior exists.
	disableLearned bool
	logger         *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMinSamples sets the minimum feedback sample count for a posterior to
// be trusted.
func WithMinSamples(n int) ResolverOption {
	return func(r *Resolver) { r.minSamples = n }
}

// WithLearnedDisabled turns off posterior-based thresholds entirely.
func WithLearnedDisabled(disabled bool) ResolverOption {
	return func(r *Resolver) { r.disableLearned = disabled }
}

// WithEngineConfig overrides the adaptive engine tuning.
func WithEngineConfig(cfg EngineConfig) ResolverOption {
	return func(r *Resolver) { r.engineCfg = cfg }
}

const defaultMinSamples = 5

// NewResolver creates a Resolver backed by the given posterior store, which
// may be nil to disable learned thresholds.
func NewResolver(posteriors PosteriorStore, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		posteriors: posteriors,
		engineCfg:  DefaultEngineConfig(),
		minSamples: defaultMinSamples,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the effective threshold for repo given the configured
// static value and the observed candidate distances. A posterior read error
// is logged and treated as "no posterior" rather than failing the decision.
func (r *Resolver) Resolve(ctx context.Context, repo string, configured float64, distances []float64) Resolution {
	if !r.disableLearned && r.posteriors != nil {
		post, err := r.posteriors.GetPosterior(ctx, repo)
		if err != nil {
			r.logger.Warn("posterior lookup failed, falling back to configured threshold",
				"repo", repo, "error", err)
		} else if post != nil && post.SampleCount >= r.minSamples {
			return Resolution{
				Threshold:   post.Mean(),
				Source:      MethodLearned,
				Alpha:       post.Alpha,
				Beta:        post.Beta,
				SampleCount: post.SampleCount,
			}
		}
	}

	res := Compute(distances, configured, r.engineCfg)
	return Resolution{
		Threshold:      res.Threshold,
		Source:         res.Method,
		CandidateCount: res.CandidateCount,
		GapSize:        res.GapSize,
		GapIndex:       res.GapIndex,
	}
}
