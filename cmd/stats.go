package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-repository triage statistics",
	Long: `Display triage activity for every tracked repository: how many issues
were claimed, how many were flagged as duplicates, how many embeddings are
stored, and the state of the learned similarity threshold.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	allStats, err := c.Store.GetAllRepoStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}

	if len(allStats) == 0 {
		fmt.Println("No repositories triaged yet.")
		fmt.Println("Run 'issuepilot serve' or 'issuepilot triage <owner/repo#number>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tCLAIMS\tDUPLICATES\tEMBEDDINGS\tFEEDBACK\tLEARNED THRESHOLD")
	fmt.Fprintln(w, "----------\t------\t----------\t----------\t--------\t-----------------")

	var totalClaims, totalDupes, totalEmbeddings int
	for _, s := range allStats {
		learned := "-"
		if s.FeedbackSamples > 0 {
			learned = fmt.Sprintf("%.3f", s.PosteriorMean)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n",
			s.Repo, s.ClaimCount, s.DuplicateCount, s.EmbeddingCount, s.FeedbackSamples, learned)

		totalClaims += s.ClaimCount
		totalDupes += s.DuplicateCount
		totalEmbeddings += s.EmbeddingCount
	}

	if len(allStats) > 1 {
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t\t\n", totalClaims, totalDupes, totalEmbeddings)
	}
	return w.Flush()
}
