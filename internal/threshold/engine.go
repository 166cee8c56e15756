package threshold

import (
	"math"
	"sort"
)

// Method identifies how an effective threshold was chosen.
type Method string

const (
	// MethodConfigured means the static configured threshold was used.
	MethodConfigured Method = "configured"
	// MethodPercentile means a percentile of the observed distances was used.
	MethodPercentile Method = "percentile"
	// MethodAdaptive means a gap in the distance distribution was used.
	MethodAdaptive Method = "adaptive"
	// MethodLearned means a Beta posterior mean was used.
	MethodLearned Method = "learned"
)

// EngineConfig holds tuning parameters for adaptive threshold computation.
type EngineConfig struct {
	// MinCandidatesForGap is the minimum number of distances required before
	// gap detection is attempted. Below this, the percentile fallback is used.
	MinCandidatesForGap int
	// MinGapSize is the smallest consecutive-distance gap treated as a real
	// separation between duplicates and non-duplicates.
	MinGapSize float64
	// FallbackPercentile selects the distance used when there are too few
	// candidates for gap detection (0.75 = 75th percentile).
	FallbackPercentile float64
	// Floor and Ceiling clamp the final threshold regardless of method.
	Floor   float64
	Ceiling float64
}

// DefaultEngineConfig returns the tuning defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinCandidatesForGap: 8,
		MinGapSize:          0.05,
		FallbackPercentile:  0.75,
		Floor:               0.15,
		Ceiling:             0.65,
	}
}

// Result describes a computed threshold and how it was derived.
type Result struct {
	Threshold      float64
	Method         Method
	CandidateCount int
	// GapSize and GapIndex are populated when gap detection ran, even if the
	// gap was too small to be used.
	GapSize  float64
	GapIndex int
}

// Compute derives a similarity-distance cutoff from a set of observed
// nearest-neighbor distances. The result is invariant to the order of the
// input slice and is always clamped to [cfg.Floor, cfg.Ceiling].
//
// With no distances the configured value is used. With fewer than
// cfg.MinCandidatesForGap distances, the fallback percentile of the sorted
// distances is used. Otherwise the largest gap between consecutive sorted
// distances is located; if it is at least cfg.MinGapSize, the threshold is
// the distance just below the gap, else the configured value is kept.
func Compute(distances []float64, configured float64, cfg EngineConfig) Result {
	if len(distances) == 0 {
		return Result{
			Threshold:      clamp(configured, cfg),
			Method:         MethodConfigured,
			CandidateCount: 0,
		}
	}

	sorted := make([]float64, len(distances))
	copy(sorted, distances)
	sort.Float64s(sorted)

	if len(sorted) < cfg.MinCandidatesForGap {
		idx := int(math.Floor(float64(len(sorted)) * cfg.FallbackPercentile))
		if idx < 0 {
			idx = 0
		}
		if idx > len(sorted)-1 {
			idx = len(sorted) - 1
		}
		return Result{
			Threshold:      clamp(sorted[idx], cfg),
			Method:         MethodPercentile,
			CandidateCount: len(sorted),
		}
	}

	maxGap := 0.0
	gapIndex := 0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap > maxGap {
			maxGap = gap
			gapIndex = i
		}
	}

	if maxGap >= cfg.MinGapSize {
		return Result{
			Threshold:      clamp(sorted[gapIndex-1], cfg),
			Method:         MethodAdaptive,
			CandidateCount: len(sorted),
			GapSize:        maxGap,
			GapIndex:       gapIndex,
		}
	}

	// No clear separation in the distribution; keep the configured value but
	// still report what was observed.
	return Result{
		Threshold:      clamp(configured, cfg),
		Method:         MethodConfigured,
		CandidateCount: len(sorted),
		GapSize:        maxGap,
		GapIndex:       gapIndex,
	}
}

func clamp(v float64, cfg EngineConfig) float64 {
	if v < cfg.Floor {
		return cfg.Floor
	}
	if v > cfg.Ceiling {
		return cfg.Ceiling
	}
	return v
}
