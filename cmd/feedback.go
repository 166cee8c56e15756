package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedbackWrong bool

var feedbackCmd = &cobra.Command{
	Use:   "feedback owner/repo",
	Short: "Record whether the last duplicate call was right",
	Long: `Feedback updates the learned similarity threshold for a repository.
Each confirmation or correction shifts a per-repo posterior; once enough
samples accumulate, its mean replaces the adaptive threshold for that repo.

By default the feedback is "the duplicate call was correct"; pass --wrong
to record a miss.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().BoolVar(&feedbackWrong, "wrong", false, "record the duplicate call as incorrect")
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	repo := args[0]
	if err := validateRepoName(repo); err != nil {
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

	ctx := cmd.Context()
	if err := c.Store.RecordThresholdFeedback(ctx, repo, !feedbackWrong); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	post, err := c.Store.GetPosterior(ctx, repo)
	if err != nil {
		return fmt.Errorf("reading posterior: %w", err)
	}

	verdict := "correct"
	if feedbackWrong {
		verdict = "wrong"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recorded %s for %s: %d samples, learned threshold %.3f\n",
		verdict, repo, post.SampleCount, post.Mean())
	return nil
}
