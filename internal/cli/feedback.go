package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resumematch/internal/domain"
)

var (
	feedbackPositive bool
	feedbackNegative bool
	feedbackComment  string
	feedbackJSON     bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and summarize recruiter feedback",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <profile-id>",
	Short: "Append a feedback entry to a profile",
	Long: `Append a positive or negative verdict, with an optional comment, to a
profile's feedback history. History is kept across re-ingestion.

Examples:
  resumematch feedback add alice --positive --comment "strong Go background"
  resumematch feedback add bob --negative`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedbackAdd,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show feedback totals across all profiles",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackStats,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackAddCmd, feedbackStatsCmd)

	feedbackAddCmd.Flags().BoolVar(&feedbackPositive, "positive", false, "record a positive verdict")
	feedbackAddCmd.Flags().BoolVar(&feedbackNegative, "negative", false, "record a negative verdict")
	feedbackAddCmd.Flags().StringVarP(&feedbackComment, "comment", "m", "", "free-form comment")
	feedbackAddCmd.MarkFlagsMutuallyExclusive("positive", "negative")
	feedbackAddCmd.MarkFlagsOneRequired("positive", "negative")

	feedbackStatsCmd.Flags().BoolVar(&feedbackJSON, "json", false, "print totals as JSON")
}

func runFeedbackAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.AddFeedback(ctx, args[0], feedbackPositive, feedbackComment); err != nil {
		return err
	}

	verdict := "negative"
	if feedbackPositive {
		verdict = "positive"
	}
	fmt.Printf("Recorded %s feedback for %s\n", verdict, args[0])
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.engine.FeedbackStats(ctx)
	if err != nil {
		return err
	}
	if feedbackJSON {
		return printJSON(os.Stdout, stats)
	}
	printFeedbackStats(stats)
	return nil
}

func printFeedbackStats(s domain.FeedbackStats) {
	fmt.Printf("Positive:                %d\n", s.Positive)
	fmt.Printf("Negative:                %d\n", s.Negative)
	fmt.Printf("Profiles with feedback:  %d\n", s.ProfilesWithFeedback)
	fmt.Printf("Total profiles:          %d\n", s.TotalProfiles)
}
