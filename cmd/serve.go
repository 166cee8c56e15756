package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rmercer/issuepilot/internal/github"
)

var serveWorkers int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and triage workers",
	Long: `Serve starts the HTTP endpoint that receives GitHub issue webhooks
and the worker pool that triages them. Events for the same installation
are processed in order; different installations run concurrently.

Send SIGHUP to reload the configuration file without restarting.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 8, "concurrent triage workers")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	loader, err := newLoader(logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(loader, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	if c.Provider == nil {
		return errors.New("serve requires GitHub App credentials in the config")
	}

	cfg := loader.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config hot-reload on SIGHUP. A bad file keeps the previous config.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := loader.Reload(); err != nil {
				logger.Error("config reload failed, keeping previous config", "error", err)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/webhook/github", github.NewWebhookHandler([]byte(cfg.GitHub.WebhookSecret), c.Broker, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("webhook server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	events := c.Broker.Subscribe(ctx)
	if serveWorkers < 1 {
		serveWorkers = 1
	}
	for i := 0; i < serveWorkers; i++ {
		g.Go(func() error {
			for evt := range events {
				if err := c.Service.HandleEvent(ctx, evt.Payload); err != nil {
					logger.Error("triage failed",
						"repo", evt.Payload.Repo,
						"issue", evt.Payload.Issue.Number,
						"delivery", evt.Payload.DeliveryID,
						"error", err)
				}
			}
			return nil
		})
	}

	if cfg.Server.DigestCron != "" && c.Notifier != nil {
		sched := cron.New()
		if _, err := sched.AddFunc(cfg.Server.DigestCron, func() {
			digestCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			stats, err := c.Store.GetAllRepoStats(digestCtx)
			if err != nil {
				logger.Error("digest stats query failed", "error", err)
				return
			}
			if err := c.Notifier.Digest(digestCtx, stats); err != nil {
				logger.Warn("digest delivery failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid digest_cron %q: %w", cfg.Server.DigestCron, err)
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("stats digest scheduled", "cron", cfg.Server.DigestCron)
	}

	return g.Wait()
}
