package dedup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/rmercer/issuepilot/internal/threshold"
)

// mockSource returns canned neighbors.
type mockSource struct {
	neighbors []Candidate
	err       error
	lastLimit int
}

func (m *mockSource) NearestNeighbors(_ context.Context, _ string, _ []float32, _, limit int) ([]Candidate, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.neighbors, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver() *threshold.Resolver {
	return threshold.NewResolver(nil, testLogger())
}

func TestFilter_KeepsBelowCutoff(t *testing.T) {
	neighbors := []Candidate{
		{Number: 1, Distance: 0.1},
		{Number: 2, Distance: 0.3},
		{Number: 3, Distance: 0.5},
	}

	got := Filter(neighbors, 0.3, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Number != 1 {
		t.Errorf("expected issue 1, got %d", got[0].Number)
	}
}

func TestFilter_SortsAscendingAndCaps(t *testing.T) {
	neighbors := []Candidate{
		{Number: 1, Distance: 0.20},
		{Number: 2, Distance: 0.05},
		{Number: 3, Distance: 0.10},
		{Number: 4, Distance: 0.15},
	}

	got := Filter(neighbors, 0.5, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	want := []int{2, 3, 4}
	for i, n := range want {
		if got[i].Number != n {
			t.Errorf("position %d: expected issue %d, got %d", i, n, got[i].Number)
		}
	}
}

func TestFilter_EmptyWhenNothingQualifies(t *testing.T) {
	neighbors := []Candidate{
		{Number: 1, Distance: 0.9},
		{Number: 2, Distance: 0.8},
	}

	got := Filter(neighbors, 0.3, 3)
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}

func TestFilter_CutoffIsExclusive(t *testing.T) {
	neighbors := []Candidate{{Number: 1, Distance: 0.3}}

	if got := Filter(neighbors, 0.3, 3); len(got) != 0 {
		t.Errorf("expected a candidate at the cutoff to be excluded, got %d", len(got))
	}
}

func TestDetector_Find(t *testing.T) {
	source := &mockSource{neighbors: []Candidate{
		{Number: 10, Distance: 0.1},
		{Number: 11, Distance: 0.9},
	}}
	d := NewDetector(source, testResolver(), testLogger())

	res, err := d.Find(context.Background(), "acme/widgets", []float32{1, 0}, 99, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Number != 10 {
		t.Errorf("unexpected candidates: %+v", res.Candidates)
	}
	if res.Resolution.Source == "" {
		t.Error("expected resolution provenance to be reported")
	}
	if source.lastLimit != defaultScanLimit {
		t.Errorf("expected scan limit %d, got %d", defaultScanLimit, source.lastLimit)
	}
}

func TestDetector_NoMatchesIsNotAnError(t *testing.T) {
	source := &mockSource{neighbors: []Candidate{
		{Number: 10, Distance: 0.95},
	}}
	d := NewDetector(source, testResolver(), testLogger())

	res, err := d.Find(context.Background(), "acme/widgets", []float32{1, 0}, 99, 0.3)
	if err != nil {
		t.Fatalf("expected silent empty outcome, got error: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(res.Candidates))
	}
}

func TestDetector_SourceErrorPropagates(t *testing.T) {
	source := &mockSource{err: fmt.Errorf("vector store down")}
	d := NewDetector(source, testResolver(), testLogger())

	if _, err := d.Find(context.Background(), "acme/widgets", []float32{1, 0}, 99, 0.3); err == nil {
		t.Error("expected neighbor lookup error to propagate")
	}
}

func TestDetector_MaxCandidatesOption(t *testing.T) {
	source := &mockSource{neighbors: []Candidate{
		{Number: 1, Distance: 0.01},
		{Number: 2, Distance: 0.02},
		{Number: 3, Distance: 0.03},
	}}
	d := NewDetector(source, testResolver(), testLogger(), WithMaxCandidates(2))

	res, err := d.Find(context.Background(), "acme/widgets", []float32{1, 0}, 99, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("expected candidates capped at 2, got %d", len(res.Candidates))
	}
}
