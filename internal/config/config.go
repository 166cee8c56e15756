package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Providers ProvidersConfig `yaml:"providers"`
	Notify    NotifyConfig    `yaml:"notify"`
	Server    ServerConfig    `yaml:"server"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Store     StoreConfig     `yaml:"store"`
	Repos     []RepoConfig    `yaml:"repos"`
}

// GitHubConfig holds GitHub App authentication and webhook settings.
type GitHubConfig struct {
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

// ProviderConfig holds settings for a single provider (embedding or LLM).
type ProviderConfig struct {
	Type   string `yaml:"type"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

// ProvidersConfig groups embedding and LLM provider configs.
type ProvidersConfig struct {
	Embedding ProviderConfig `yaml:"embedding"`
	LLM       ProviderConfig `yaml:"llm"`
}

// NotifyConfig holds operator notification settings.
type NotifyConfig struct {
	SlackWebhook string `yaml:"slack_webhook"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// DigestCron is a cron expression for the periodic stats digest.
	// Empty disables the digest.
	DigestCron string `yaml:"digest_cron"`
}

// ThresholdConfig tunes the adaptive threshold engine and learned thresholds.
type ThresholdConfig struct {
	Floor               float64 `yaml:"floor"`
	Ceiling             float64 `yaml:"ceiling"`
	MinGapSize          float64 `yaml:"min_gap_size"`
	FallbackPercentile  float64 `yaml:"fallback_percentile"`
	MinCandidatesForGap int     `yaml:"min_candidates_for_gap"`
	MinPosteriorSamples int     `yaml:"min_posterior_samples"`
	DisableLearned      bool    `yaml:"disable_learned"`
}

// WeightsConfig holds finding prioritization weights.
type WeightsConfig struct {
	Severity   float64 `yaml:"severity"`
	FileRisk   float64 `yaml:"file_risk"`
	Category   float64 `yaml:"category"`
	Recurrence float64 `yaml:"recurrence"`
}

// DefaultsConfig holds default operational parameters.
type DefaultsConfig struct {
	CooldownMinutes     int             `yaml:"cooldown_minutes"`
	SimilarityThreshold float64         `yaml:"similarity_threshold"`
	MaxDuplicatesShown  int             `yaml:"max_duplicates_shown"`
	MaxReviewComments   int             `yaml:"max_review_comments"`
	DuplicateLabel      string          `yaml:"duplicate_label"`
	TriageLabel         string          `yaml:"triage_label"`
	RequestTimeoutRaw   string          `yaml:"request_timeout"`
	Threshold           ThresholdConfig `yaml:"threshold"`
	Weights             WeightsConfig   `yaml:"weights"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RepoConfig holds per-repository overrides.
type RepoConfig struct {
	Name                string   `yaml:"name"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	TriageLabel         string   `yaml:"triage_label"`
}

// Cooldown returns the claim cooldown window.
func (d DefaultsConfig) Cooldown() time.Duration {
	if d.CooldownMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(d.CooldownMinutes) * time.Minute
}

// RequestTimeout returns the parsed request timeout duration.
func (d DefaultsConfig) RequestTimeout() (time.Duration, error) {
	if d.RequestTimeoutRaw == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(d.RequestTimeoutRaw)
}

// SimilarityThresholdFor returns the configured similarity threshold for a
// repo, honoring per-repo overrides.
func (c *Config) SimilarityThresholdFor(repo string) float64 {
	for _, rc := range c.Repos {
		if rc.Name == repo && rc.SimilarityThreshold != nil {
			return *rc.SimilarityThreshold
		}
	}
	return c.Defaults.SimilarityThreshold
}

// TriageLabelFor returns the triage label for a repo, honoring per-repo
// overrides. Empty means no label is applied.
func (c *Config) TriageLabelFor(repo string) string {
	for _, rc := range c.Repos {
		if rc.Name == repo && rc.TriageLabel != "" {
			return rc.TriageLabel
		}
	}
	return c.Defaults.TriageLabel
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable
// values. Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Load reads, expands, parses, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Defaults
	if d.SimilarityThreshold == 0 {
		d.SimilarityThreshold = 0.3
	}
	if d.MaxDuplicatesShown == 0 {
		d.MaxDuplicatesShown = 3
	}
	if d.MaxReviewComments == 0 {
		d.MaxReviewComments = 5
	}
	if d.CooldownMinutes == 0 {
		d.CooldownMinutes = 60
	}
	if d.DuplicateLabel == "" {
		d.DuplicateLabel = "possible-duplicate"
	}

	th := &d.Threshold
	if th.Floor == 0 {
		th.Floor = 0.15
	}
	if th.Ceiling == 0 {
		th.Ceiling = 0.65
	}
	if th.MinGapSize == 0 {
		th.MinGapSize = 0.05
	}
	if th.FallbackPercentile == 0 {
		th.FallbackPercentile = 0.75
	}
	if th.MinCandidatesForGap == 0 {
		th.MinCandidatesForGap = 8
	}
	if th.MinPosteriorSamples == 0 {
		th.MinPosteriorSamples = 5
	}

	w := &d.Weights
	if w.Severity == 0 && w.FileRisk == 0 && w.Category == 0 && w.Recurrence == 0 {
		w.Severity = 0.45
		w.FileRisk = 0.30
		w.Category = 0.15
		w.Recurrence = 0.10
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "issuepilot.db"
	}
}

func validate(cfg *Config) error {
	d := cfg.Defaults
	if d.SimilarityThreshold < 0 || d.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1], got %v", d.SimilarityThreshold)
	}
	if d.Threshold.Floor > d.Threshold.Ceiling {
		return fmt.Errorf("threshold floor %v exceeds ceiling %v", d.Threshold.Floor, d.Threshold.Ceiling)
	}
	if d.Threshold.FallbackPercentile < 0 || d.Threshold.FallbackPercentile > 1 {
		return fmt.Errorf("fallback_percentile must be in [0, 1], got %v", d.Threshold.FallbackPercentile)
	}
	if _, err := d.RequestTimeout(); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	for _, rc := range cfg.Repos {
		if !strings.Contains(rc.Name, "/") {
			return fmt.Errorf("repo name %q must be owner/name", rc.Name)
		}
	}
	return nil
}
