package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmercer/issuepilot/internal/config"
	"github.com/rmercer/issuepilot/internal/dedup"
	"github.com/rmercer/issuepilot/internal/github"
	"github.com/rmercer/issuepilot/internal/notify"
	"github.com/rmercer/issuepilot/internal/provider"
	"github.com/rmercer/issuepilot/internal/pubsub"
	"github.com/rmercer/issuepilot/internal/queue"
	"github.com/rmercer/issuepilot/internal/review"
	"github.com/rmercer/issuepilot/internal/store"
	"github.com/rmercer/issuepilot/internal/threshold"
	"github.com/rmercer/issuepilot/internal/triage"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "issuepilot",
	Short: "Triage GitHub issues from webhook events",
	Long: `Issuepilot receives GitHub issue webhooks, detects duplicates via
embedding similarity with adaptive thresholds, runs automated review on
fresh issues, and posts a prioritized triage comment back on the issue.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".issuepilot/config.yaml"
	}
	return home + "/.issuepilot/config.yaml"
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func newLoader(logger *slog.Logger) (*config.Loader, error) {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	return config.NewLoader(path, logger)
}

// components holds initialized components for use by subcommands.
type components struct {
	Loader    *config.Loader
	Store     *store.DB
	Provider  *github.Provider
	Embedder  provider.Embedder
	Completer provider.Completer
	Detector  *dedup.Detector
	Service   *triage.Service
	Broker    *pubsub.Broker[github.IssueEvent]
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// initComponents wires the full pipeline from the loaded config. Tunables
// that must track config reloads flow through the loader's Accessor; the
// component graph itself is fixed at startup.
func initComponents(loader *config.Loader, logger *slog.Logger) (*components, error) {
	cfg := loader.Get()
	c := &components{
		Loader: loader,
		Logger: logger,
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	c.Store = db

	ghProvider, err := newGitHubProvider(cfg)
	if err != nil {
		return nil, err
	}
	c.Provider = ghProvider

	c.Embedder, err = newEmbedder(cfg.Providers.Embedding)
	if err != nil {
		return nil, err
	}
	c.Completer, err = newCompleter(cfg.Providers.LLM)
	if err != nil {
		return nil, err
	}

	resolver := threshold.NewResolver(db, logger, resolverOptions(cfg)...)
	c.Detector = dedup.NewDetector(dedup.NewStoreProvider(db), resolver, logger,
		dedup.WithMaxCandidates(cfg.Defaults.MaxDuplicatesShown))

	if cfg.Notify.SlackWebhook != "" {
		c.Notifier = notify.NewSlackNotifier(cfg.Notify.SlackWebhook)
	}

	var commentLister triage.CommentLister
	var commenter triage.Commenter
	if ghProvider != nil {
		commentLister = ghProvider
		commenter = ghProvider
	}
	coord := triage.NewCoordinator(commentLister, db, logger,
		triage.WithCooldown(cfg.Defaults.Cooldown()))

	opts := []triage.ServiceOption{}
	if c.Embedder != nil {
		opts = append(opts, triage.WithEmbedder(c.Embedder, cfg.Providers.Embedding.Model))
	}
	if c.Completer != nil {
		timeout, err := cfg.Defaults.RequestTimeout()
		if err != nil {
			timeout = 30 * time.Second
		}
		opts = append(opts, triage.WithReviewer(review.NewAnalyzer(c.Completer, timeout)))
	}
	if c.Notifier != nil {
		opts = append(opts, triage.WithNotifier(c.Notifier))
	}

	c.Service = triage.NewService(loader.Accessor(), queue.New(logger), coord,
		db, c.Detector, commenter, logger, opts...)

	c.Broker = pubsub.NewBroker[github.IssueEvent]()
	return c, nil
}

// newGitHubProvider builds the authenticated API surface, or nil when no
// App credentials are configured (store-only commands still work).
func newGitHubProvider(cfg *config.Config) (*github.Provider, error) {
	if cfg.GitHub.AppID == "" {
		return nil, nil
	}
	appID, err := strconv.ParseInt(cfg.GitHub.AppID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing app_id: %w", err)
	}
	installID, err := strconv.ParseInt(cfg.GitHub.InstallationID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing installation_id: %w", err)
	}
	client, err := github.NewAppClient(appID, installID, []byte(cfg.GitHub.PrivateKey), cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}
	return github.NewProvider(client), nil
}

func newEmbedder(pc config.ProviderConfig) (provider.Embedder, error) {
	switch pc.Type {
	case "openai":
		return provider.NewOpenAIEmbedder(pc.APIKey, pc.Model), nil
	case "ollama":
		return provider.NewOllamaEmbedder(pc.URL, pc.Model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider type: %q", pc.Type)
	}
}

func newCompleter(pc config.ProviderConfig) (provider.Completer, error) {
	switch pc.Type {
	case "openai":
		return provider.NewOpenAICompleter(pc.APIKey, pc.Model), nil
	case "anthropic":
		return provider.NewAnthropicCompleter(pc.APIKey, pc.Model), nil
	case "ollama":
		return provider.NewOllamaCompleter(pc.URL, pc.Model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %q", pc.Type)
	}
}

func resolverOptions(cfg *config.Config) []threshold.ResolverOption {
	th := cfg.Defaults.Threshold
	engine := threshold.DefaultEngineConfig()
	if th.Floor > 0 {
		engine.Floor = th.Floor
	}
	if th.Ceiling > 0 {
		engine.Ceiling = th.Ceiling
	}
	if th.MinGapSize > 0 {
		engine.MinGapSize = th.MinGapSize
	}
	if th.FallbackPercentile > 0 {
		engine.FallbackPercentile = th.FallbackPercentile
	}
	if th.MinCandidatesForGap > 0 {
		engine.MinCandidatesForGap = th.MinCandidatesForGap
	}
	opts := []threshold.ResolverOption{
		threshold.WithEngineConfig(engine),
		threshold.WithLearnedDisabled(th.DisableLearned),
	}
	if th.MinPosteriorSamples > 0 {
		opts = append(opts, threshold.WithMinSamples(th.MinPosteriorSamples))
	}
	return opts
}
