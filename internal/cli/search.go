package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resumematch/internal/adapter/ranker"
	"resumematch/internal/domain"
	"resumematch/internal/usecase"
)

var (
	searchQuery string
	searchN     int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the profiles closest to a query",
	Long: `Return the stored profiles whose resume text is nearest to the query in
embedding space. No language model is called.

Examples:
  resumematch search -q "distributed systems golang"
  resumematch search -q "data engineer spark" -n 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchN, "limit", "n", 5, "number of profiles to return")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print profiles as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	profiles, err := a.engine.Search(ctx, searchQuery, searchN)
	if err != nil {
		return err
	}

	if searchJSON {
		return printJSON(os.Stdout, profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}
	for i, p := range profiles {
		printProfileLine(os.Stdout, i+1, p)
	}
	return nil
}

func printProfileLine(w io.Writer, rank int, p domain.Profile) {
	fmt.Fprintf(w, "%d. %s", rank, p.ID)
	if src := p.Metadata[usecase.MetaSource]; src != "" {
		fmt.Fprintf(w, " (%s)", src)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   %s\n", oneLine(p.Summary, 160))
}

// oneLine collapses whitespace and truncates to n runes for table output.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if t := ranker.Truncate(s, n); t != s {
		return t + "..."
	}
	return s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
