package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resumematch/internal/adapter/export"
	"resumematch/internal/adapter/ranker"
	"resumematch/internal/domain"
	"resumematch/internal/usecase"
)

var (
	matchQuery      string
	matchFile       string
	matchTop        int
	matchXLSX       string
	matchNoKeyTerms bool
	matchJSON       bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank candidates for a job description",
	Long: `Recall the profiles nearest to a job description, score each one with the
configured language model and print the best matches, highest score first.

Examples:
  resumematch match --file job.txt
  resumematch match -q "Senior Go engineer, Kubernetes, PostgreSQL" --top 3
  resumematch match --file job.txt --xlsx shortlist.xlsx`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringVarP(&matchQuery, "query", "q", "", "job description text")
	matchCmd.Flags().StringVarP(&matchFile, "file", "f", "", "read the job description from a file")
	matchCmd.Flags().IntVarP(&matchTop, "top", "n", 0, "number of candidates to return (default matching.top_n)")
	matchCmd.Flags().StringVar(&matchXLSX, "xlsx", "", "also write the ranking to an Excel workbook")
	matchCmd.Flags().BoolVar(&matchNoKeyTerms, "no-key-terms", false, "skip key-term extraction")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "print the report as JSON")
	matchCmd.MarkFlagsMutuallyExclusive("query", "file")
	matchCmd.MarkFlagsOneRequired("query", "file")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobText := matchQuery
	if matchFile != "" {
		data, err := os.ReadFile(matchFile)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		jobText = string(data)
	}
	top := matchTop
	if top == 0 {
		top = cfg.Matching.TopN
	}

	a, err := openApp(ctx, appOptions{oracle: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.engine.MatchReport(ctx, usecase.MatchRequest{
		JobText:      jobText,
		TopN:         top,
		SkipKeyTerms: matchNoKeyTerms,
	})
	if err != nil {
		return err
	}

	if matchXLSX != "" {
		path, err := export.WriteMatches(report, jobText, matchXLSX)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}

	if matchJSON {
		return printJSON(os.Stdout, report)
	}
	printReport(report)
	return nil
}

func printReport(report domain.MatchReport) {
	if len(report.KeyTerms) > 0 && !ranker.IsSentinel(report.KeyTerms) {
		fmt.Printf("Key terms: %s\n\n", strings.Join(report.KeyTerms, ", "))
	}
	if len(report.Results) == 0 {
		fmt.Println("No candidates found.")
		return
	}
	for i, r := range report.Results {
		fmt.Printf("%d. %s  %5.1f%%", i+1, r.ProfileID, r.Score*100)
		if src := r.Metadata[usecase.MetaSource]; src != "" {
			fmt.Printf("  (%s)", src)
		}
		fmt.Println()
		fmt.Printf("   %s\n", oneLine(r.Summary, 160))
	}
}
