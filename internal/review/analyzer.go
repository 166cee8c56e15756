// Package review turns an LLM pass over an issue into structured findings
// that the prioritizer can rank and cap.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rmercer/issuepilot/internal/github"
	"github.com/rmercer/issuepilot/internal/prioritize"
	"github.com/rmercer/issuepilot/internal/provider"
)

// Analyzer uses an LLM completer to produce review findings for an issue.
type Analyzer struct {
	completer provider.Completer
	timeout   time.Duration
}

// NewAnalyzer creates an Analyzer with the given completer and timeout.
// If timeout is zero, defaults to 30 seconds.
func NewAnalyzer(completer provider.Completer, timeout time.Duration) *Analyzer {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Analyzer{
		completer: completer,
		timeout:   timeout,
	}
}

// rawFinding is the expected JSON element from the LLM.
type rawFinding struct {
	Title      string  `json:"title"`
	File       string  `json:"file"`
	Severity   string  `json:"severity"`
	Category   string  `json:"category"`
	FileRisk   float64 `json:"file_risk"`
	Recurrence int     `json:"recurrence"`
}

// llmResponse is the expected JSON structure from the LLM.
type llmResponse struct {
	Findings []rawFinding `json:"findings"`
}

// codeFenceRe matches markdown code fences around JSON.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\\s*```")

// parseResponse parses the LLM's JSON response, stripping markdown fences
// if present.
func parseResponse(raw string) (*llmResponse, error) {
	cleaned := strings.TrimSpace(raw)

	if matches := codeFenceRe.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = strings.TrimSpace(matches[1])
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrInvalidResponse, err)
	}
	return &resp, nil
}

// severityFromString maps the LLM's severity word onto the fixed ordinal
// scale, defaulting unknown values to low rather than failing.
func severityFromString(s string) prioritize.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return prioritize.SeverityCritical
	case "high":
		return prioritize.SeverityHigh
	case "medium":
		return prioritize.SeverityMedium
	case "info", "informational":
		return prioritize.SeverityInfo
	default:
		return prioritize.SeverityLow
	}
}

func categoryFromString(s string) prioritize.Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "security":
		return prioritize.CategorySecurity
	case "correctness", "bug":
		return prioritize.CategoryCorrectness
	case "performance":
		return prioritize.CategoryPerformance
	case "maintainability":
		return prioritize.CategoryMaintain
	default:
		return prioritize.CategoryStyle
	}
}

// Review runs the LLM over an issue and returns normalized findings.
// An empty slice means the reviewer had nothing to flag.
func (a *Analyzer) Review(ctx context.Context, repo string, issue github.Issue) ([]prioritize.Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildPrompt(repo, issue)
	raw, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reviewing %s#%d: %w", repo, issue.Number, err)
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	findings := make([]prioritize.Finding, 0, len(resp.Findings))
	for i, rf := range resp.Findings {
		if strings.TrimSpace(rf.Title) == "" {
			continue
		}
		risk := rf.FileRisk
		if risk < 0 {
			risk = 0
		}
		recurrence := rf.Recurrence
		if recurrence < 0 {
			recurrence = 0
		}
		findings = append(findings, prioritize.Finding{
			ID:         fmt.Sprintf("%s#%d/%d", repo, issue.Number, i),
			Title:      rf.Title,
			File:       rf.File,
			Severity:   severityFromString(rf.Severity),
			Category:   categoryFromString(rf.Category),
			FileRisk:   risk,
			Recurrence: recurrence,
		})
	}
	return findings, nil
}
