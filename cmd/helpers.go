package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIssueRef parses an issue reference given either as a single
// "owner/repo#42" argument or as separate "owner/repo" and "42" arguments.
func parseIssueRef(args []string) (repo string, number int, err error) {
	switch len(args) {
	case 1:
		idx := strings.LastIndex(args[0], "#")
		if idx < 0 {
			return "", 0, fmt.Errorf("expected owner/repo#number, got %q", args[0])
		}
		repo = args[0][:idx]
		number, err = strconv.Atoi(args[0][idx+1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid issue number in %q: %w", args[0], err)
		}
	case 2:
		repo = args[0]
		number, err = strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}
	default:
		return "", 0, fmt.Errorf("expected owner/repo#number or owner/repo number")
	}

	if err := validateRepoName(repo); err != nil {
		return "", 0, err
	}
	if number <= 0 {
		return "", 0, fmt.Errorf("issue number must be positive, got %d", number)
	}
	return repo, number, nil
}

// validateRepoName checks an "owner/name" full repository name.
func validateRepoName(repo string) error {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid repo format: expected owner/repo, got %q", repo)
	}
	return nil
}
