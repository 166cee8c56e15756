package triage

import (
	"fmt"
	"strings"

	"github.com/rmercer/issuepilot/internal/dedup"
	"github.com/rmercer/issuepilot/internal/prioritize"
)

// Marker returns the hidden HTML comment embedded in every triage report.
// The marker layer scans recent comments for this exact string, so its
// format must stay stable across versions.
func Marker(repo string, issueNumber int) string {
	return fmt.Sprintf("<!-- issuepilot:triaged %s#%d -->", repo, issueNumber)
}

func containsMarker(body, marker string) bool {
	return strings.Contains(body, marker)
}

// buildReport renders the triage comment body: the idempotency marker, then
// a duplicates section when candidates were found, then the selected review
// findings. Returns an empty string when there is nothing to report.
func buildReport(repo string, issueNumber int, candidates []dedup.Candidate, findings []prioritize.Scored) string {
	if len(candidates) == 0 && len(findings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(Marker(repo, issueNumber))
	b.WriteString("\n")

	if len(candidates) > 0 {
		b.WriteString("\nThis issue looks similar to existing issues:\n\n")
		for _, c := range candidates {
			state := ""
			if c.State != "" {
				state = " (" + c.State + ")"
			}
			fmt.Fprintf(&b, "- #%d %s%s — similarity distance %.3f\n", c.Number, c.Title, state, c.Distance)
		}
		b.WriteString("\nIf one of these covers your report, consider closing this issue in its favor.\n")
	}

	if len(findings) > 0 {
		b.WriteString("\nAutomated review findings, highest impact first:\n\n")
		for i, f := range findings {
			location := ""
			if f.Finding.File != "" {
				location = " (`" + f.Finding.File + "`)"
			}
			fmt.Fprintf(&b, "%d. **%s**%s — %s/%s\n", i+1, f.Finding.Title, location, f.Finding.Severity, f.Finding.Category)
		}
	}

	b.WriteString("\n<sub>Posted automatically by issuepilot.</sub>\n")
	return b.String()
}
