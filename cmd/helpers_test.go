package cmd

import "testing"

func TestParseIssueRef(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantRepo   string
		wantNumber int
		wantErr    bool
	}{
		{"combined form", []string{"acme/widgets#42"}, "acme/widgets", 42, false},
		{"split form", []string{"acme/widgets", "42"}, "acme/widgets", 42, false},
		{"missing number", []string{"acme/widgets"}, "", 0, true},
		{"non-numeric number", []string{"acme/widgets#abc"}, "", 0, true},
		{"negative number", []string{"acme/widgets", "-3"}, "", 0, true},
		{"zero number", []string{"acme/widgets#0"}, "", 0, true},
		{"missing owner", []string{"/widgets#1"}, "", 0, true},
		{"missing name", []string{"acme/#1"}, "", 0, true},
		{"no slash", []string{"widgets#1"}, "", 0, true},
		{"too many args", []string{"a/b", "1", "2"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, number, err := parseIssueRef(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseIssueRef(%v) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseIssueRef(%v): %v", tt.args, err)
			}
			if repo != tt.wantRepo || number != tt.wantNumber {
				t.Errorf("parseIssueRef(%v) = (%q, %d), want (%q, %d)",
					tt.args, repo, number, tt.wantRepo, tt.wantNumber)
			}
		})
	}
}

func TestValidateRepoName(t *testing.T) {
	valid := []string{"acme/widgets", "a/b", "org-name/repo.name"}
	for _, repo := range valid {
		if err := validateRepoName(repo); err != nil {
			t.Errorf("validateRepoName(%q): %v", repo, err)
		}
	}

	invalid := []string{"", "acme", "acme/", "/widgets", "/"}
	for _, repo := range invalid {
		if err := validateRepoName(repo); err == nil {
			t.Errorf("validateRepoName(%q) succeeded, want error", repo)
		}
	}
}
