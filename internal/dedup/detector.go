// Package dedup detects duplicate issues by comparing embedding vectors.
// Distances are cosine distances: lower means more similar.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rmercer/issuepilot/internal/threshold"
)

// Candidate is a potential duplicate of the item under inspection.
type Candidate struct {
	Number   int
	Title    string
	State    string
	Distance float64
}

// NeighborSource looks up nearest neighbors for an embedding, scoped to one
// repo and excluding the item itself, ordered by ascending distance.
type NeighborSource interface {
	NearestNeighbors(ctx context.Context, repo string, embedding []float32, excludeNumber, limit int) ([]Candidate, error)
}

// Filter keeps candidates whose distance is strictly below cutoff, sorted
// ascending by distance and capped at maxCandidates. An empty result is a
// valid outcome, not an error.
func Filter(neighbors []Candidate, cutoff float64, maxCandidates int) []Candidate {
	kept := make([]Candidate, 0, len(neighbors))
	for _, c := range neighbors {
		if c.Distance < cutoff {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Distance < kept[j].Distance
	})

	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}
	return kept
}

const (
	defaultMaxCandidates = 3
	// defaultScanLimit bounds the neighbor query; it is wider than
	// maxCandidates so the threshold resolver sees the distance distribution.
	defaultScanLimit = 50
)

// Detector finds duplicate candidates for a new issue using a neighbor
// lookup and a per-repo resolved threshold.
type Detector struct {
	source        NeighborSource
	resolver      *threshold.Resolver
	maxCandidates int
	scanLimit     int
	logger        *slog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithMaxCandidates caps how many duplicate candidates are surfaced.
func WithMaxCandidates(n int) DetectorOption {
	return func(d *Detector) { d.maxCandidates = n }
}

// WithScanLimit sets how many neighbors are fetched for threshold resolution.
func WithScanLimit(n int) DetectorOption {
	return func(d *Detector) { d.scanLimit = n }
}

// NewDetector creates a Detector.
func NewDetector(source NeighborSource, resolver *threshold.Resolver, logger *slog.Logger, opts ...DetectorOption) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		source:        source,
		resolver:      resolver,
		maxCandidates: defaultMaxCandidates,
		scanLimit:     defaultScanLimit,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is the outcome of a duplicate check.
type Result struct {
	Candidates []Candidate
	Resolution threshold.Resolution
}

// Find looks up neighbors of embedding within repo (excluding excludeNumber),
// resolves the effective distance threshold from the observed distribution,
// and returns the candidates below it. "No duplicates" comes back as an
// empty candidate list with a nil error.
func (d *Detector) Find(ctx context.Context, repo string, embedding []float32, excludeNumber int, configured float64) (*Result, error) {
	neighbors, err := d.source.NearestNeighbors(ctx, repo, embedding, excludeNumber, d.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("querying neighbors for %s: %w", repo, err)
	}

	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		distances[i] = n.Distance
	}

	resolution := d.resolver.Resolve(ctx, repo, configured, distances)
	candidates := Filter(neighbors, resolution.Threshold, d.maxCandidates)

	d.logger.Debug("duplicate check complete",
		"repo", repo,
		"neighbors", len(neighbors),
		"candidates", len(candidates),
		"threshold", resolution.Threshold,
		"source", resolution.Source,
	)

	return &Result{
		Candidates: candidates,
		Resolution: resolution,
	}, nil
}
