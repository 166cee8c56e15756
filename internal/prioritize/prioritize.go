package prioritize

import "sort"

// Severity ranks how bad a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Category groups findings by the kind of problem they describe.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryCorrectness Category = "correctness"
	CategoryPerformance Category = "performance"
	CategoryMaintain    Category = "maintainability"
	CategoryStyle       Category = "style"
)

// severityValues maps severities onto [0, 1].
var severityValues = map[Severity]float64{
	SeverityCritical: 1.0,
	SeverityHigh:     0.75,
	SeverityMedium:   0.5,
	SeverityLow:      0.25,
	SeverityInfo:     0.1,
}

// categoryValues maps categories onto [0, 1].
var categoryValues = map[Category]float64{
	CategorySecurity:    1.0,
	CategoryCorrectness: 0.8,
	CategoryPerformance: 0.6,
	CategoryMaintain:    0.4,
	CategoryStyle:       0.2,
}

// Finding is one reviewable item (a review finding or a duplicate candidate)
// with the raw signals the scorer consumes.
type Finding struct {
	ID       string
	Title    string
	File     string
	Severity Severity
	Category Category
	// FileRisk is a churn/complexity signal for the file, any non-negative scale.
	FileRisk float64
	// Recurrence counts how many times this finding has been reported before.
	Recurrence int
}

// Weights control the relative contribution of each signal. They need not
// sum to 1; scores are only compared within a single Prioritize call.
type Weights struct {
	Severity   float64
	FileRisk   float64
	Category   float64
	Recurrence float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Severity:   0.45,
		FileRisk:   0.30,
		Category:   0.15,
		Recurrence: 0.10,
	}
}

// Breakdown records the weighted contribution of each signal to a score.
type Breakdown struct {
	Severity   float64
	FileRisk   float64
	Category   float64
	Recurrence float64
}

// Scored pairs a finding with its composite score.
type Scored struct {
	Finding   Finding
	Score     float64
	Breakdown Breakdown
	// originalIndex is the finding's position in the input, used as the
	// deterministic tie-break.
	originalIndex int
}

// Stats summarizes one Prioritize call.
type Stats struct {
	FindingsScored int
	TopScore       float64
	// ThresholdScore is the score of the last selected finding, i.e. the
	// effective cutoff for surfacing.
	ThresholdScore float64
}

// Result holds the full ranking and the capped selection.
type Result struct {
	Ranked   []Scored
	Selected []Scored
	Stats    Stats
}

// saturationRecurrence is where the recurrence signal tops out.
const saturationRecurrence = 5.0

// Score computes the weighted composite score for a single finding.
// maxFileRisk normalizes FileRisk across the batch; pass 0 when unknown.
func Score(f Finding, w Weights, maxFileRisk float64) (float64, Breakdown) {
	sev := severityValues[f.Severity]
	cat := categoryValues[f.Category]

	risk := 0.0
	if maxFileRisk > 0 {
		risk = f.FileRisk / maxFileRisk
		if risk > 1 {
			risk = 1
		}
	}

	rec := float64(f.Recurrence) / saturationRecurrence
	if rec > 1 {
		rec = 1
	}

	b := Breakdown{
		Severity:   w.Severity * sev,
		FileRisk:   w.FileRisk * risk,
		Category:   w.Category * cat,
		Recurrence: w.Recurrence * rec,
	}
	return b.Severity + b.FileRisk + b.Category + b.Recurrence, b
}

// Prioritize scores every finding, ranks them descending by score with ties
// broken by original input order, and selects the top maxSelected for
// surfacing to a human. The full ranking is returned for audit logging.
func Prioritize(findings []Finding, maxSelected int, w Weights) Result {
	if len(findings) == 0 {
		return Result{}
	}

	maxRisk := 0.0
	for _, f := range findings {
		if f.FileRisk > maxRisk {
			maxRisk = f.FileRisk
		}
	}

	ranked := make([]Scored, len(findings))
	for i, f := range findings {
		score, breakdown := Score(f, w, maxRisk)
		ranked[i] = Scored{
			Finding:       f,
			Score:         score,
			Breakdown:     breakdown,
			originalIndex: i,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].originalIndex < ranked[j].originalIndex
	})

	if maxSelected < 0 {
		maxSelected = 0
	}
	if maxSelected > len(ranked) {
		maxSelected = len(ranked)
	}
	selected := ranked[:maxSelected]

	stats := Stats{
		FindingsScored: len(ranked),
		TopScore:       ranked[0].Score,
	}
	if len(selected) > 0 {
		stats.ThresholdScore = selected[len(selected)-1].Score
	}

	return Result{
		Ranked:   ranked,
		Selected: selected,
		Stats:    stats,
	}
}
