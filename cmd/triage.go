package cmd

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rmercer/issuepilot/internal/github"
)

var triageCmd = &cobra.Command{
	Use:   "triage owner/repo#number",
	Short: "Triage a single issue on demand",
	Long: `Triage fetches one issue and runs the full pipeline on it: duplicate
detection, automated review, and the triage comment. The same idempotency
rules apply as for webhook deliveries, so re-running within the cooldown
window is a no-op.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)
}

func runTriage(cmd *cobra.Command, args []string) error {
	repo, number, err := parseIssueRef(args)
	if err != nil {
		return err
	}

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
		return fmt.Errorf("triage requires GitHub App credentials in the config")
	}

	ctx := cmd.Context()
	issue, err := c.Provider.GetIssue(ctx, repo, number)
	if err != nil {
		return fmt.Errorf("fetching issue: %w", err)
	}

	installID, _ := strconv.ParseInt(loader.Get().GitHub.InstallationID, 10, 64)
	evt := github.IssueEvent{
		Repo:           repo,
		InstallationID: installID,
		DeliveryID:     "manual-" + uuid.NewString(),
		Action:         "opened",
		Issue:          *issue,
	}

	if err := c.Service.HandleEvent(ctx, evt); err != nil {
		return fmt.Errorf("triaging %s#%d: %w", repo, number, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "triaged %s#%d\n", repo, number)
	return nil
}
