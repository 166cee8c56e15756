package threshold

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
)

// mockPosteriorStore returns a canned posterior or error.
type mockPosteriorStore struct {
	posterior *Posterior
	err       error
	calls     int
}

func (m *mockPosteriorStore) GetPosterior(_ context.Context, _ string) (*Posterior, error) {
	m.calls++
	return m.posterior, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_PrefersLearnedPosterior(t *testing.T) {
	store := &mockPosteriorStore{
		posterior: &Posterior{Alpha: 7, Beta: 3, SampleCount: 10},
	}
	r := NewResolver(store, discardLogger())

	res := r.Resolve(context.Background(), "acme/widgets", 0.3, []float64{0.1, 0.2})
	if res.Source != MethodLearned {
		t.Fatalf("expected learned source, got %q", res.Source)
	}
	if math.Abs(res.Threshold-0.7) > 1e-9 {
		t.Errorf("expected posterior mean 0.7, got %v", res.Threshold)
	}
	if res.Alpha != 7 || res.Beta != 3 || res.SampleCount != 10 {
		t.Errorf("expected posterior detail carried through, got %+v", res)
	}
}

func TestResolver_InsufficientSamplesDelegates(t *testing.T) {
	store := &mockPosteriorStore{
		posterior: &Posterior{Alpha: 2, Beta: 1, SampleCount: 3},
	}
	r := NewResolver(store, discardLogger(), WithMinSamples(5))

	res := r.Resolve(context.Background(), "acme/widgets", 0.3, nil)
	if res.Source != MethodConfigured {
		t.Errorf("expected configured source, got %q", res.Source)
	}
	if res.Threshold != 0.3 {
		t.Errorf("expected configured threshold, got %v", res.Threshold)
	}
}

func TestResolver_NoPosteriorDelegatesToEngine(t *testing.T) {
	store := &mockPosteriorStore{}
	r := NewResolver(store, discardLogger())

	distances := []float64{0.1, 0.12, 0.15, 0.18, 0.2, 0.22, 0.25, 0.5}
	res := r.Resolve(context.Background(), "acme/widgets", 0.3, distances)
	if res.Source != MethodAdaptive {
		t.Fatalf("expected adaptive source, got %q", res.Source)
	}
	if res.Threshold != 0.25 {
		t.Errorf("expected threshold 0.25, got %v", res.Threshold)
	}
	if res.GapIndex != 7 {
		t.Errorf("expected gap index 7, got %d", res.GapIndex)
	}
}

func TestResolver_StoreErrorFailsOpen(t *testing.T) {
	store := &mockPosteriorStore{err: fmt.Errorf("connection refused")}
	r := NewResolver(store, discardLogger())

	res := r.Resolve(context.Background(), "acme/widgets", 0.3, nil)
	if res.Source != MethodConfigured {
		t.Errorf("expected configured source after store error, got %q", res.Source)
	}
	if res.Threshold != 0.3 {
		t.Errorf("expected configured threshold, got %v", res.Threshold)
	}
}

func TestResolver_LearnedDisabled(t *testing.T) {
	store := &mockPosteriorStore{
		posterior: &Posterior{Alpha: 9, Beta: 1, SampleCount: 100},
	}
	r := NewResolver(store, discardLogger(), WithLearnedDisabled(true))

	res := r.Resolve(context.Background(), "acme/widgets", 0.3, nil)
	if res.Source == MethodLearned {
		t.Error("expected learned path to be skipped when disabled")
	}
	if store.calls != 0 {
		t.Errorf("expected no posterior lookups, got %d", store.calls)
	}
}

func TestResolver_NilStore(t *testing.T) {
	r := NewResolver(nil, discardLogger())

	res := r.Resolve(context.Background(), "acme/widgets", 0.3, nil)
	if res.Source != MethodConfigured {
		t.Errorf("expected configured source with nil store, got %q", res.Source)
	}
}

func TestPosterior_Mean(t *testing.T) {
	tests := []struct {
		name      string
		posterior Posterior
		want      float64
	}{
		{"balanced", Posterior{Alpha: 5, Beta: 5}, 0.5},
		{"skewed", Posterior{Alpha: 3, Beta: 1}, 0.75},
		{"zero", Posterior{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.posterior.Mean(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
