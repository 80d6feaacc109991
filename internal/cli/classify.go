package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resumematch/internal/adapter/fs"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Check whether a document looks like a resume",
	Long: `Run the resume classifier on a file without storing anything. Prints the
rubric score, confidence and the signals that fired.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the verdict as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text, err := fs.NewTextExtractor().Extract(args[0])
	if err != nil {
		return err
	}

	cc := cfg.Classifier
	cc.Enabled = true
	cls, err := newClassifier(cc)
	if err != nil {
		return err
	}
	verdict := cls.Classify(text)

	if classifyJSON {
		return printJSON(os.Stdout, verdict)
	}
	label := "not a resume"
	if verdict.Admissible {
		label = "resume"
	}
	fmt.Printf("%s: %s (score %d, confidence %.2f)\n", args[0], label, verdict.Score, verdict.Confidence)
	fmt.Printf("  %s\n", verdict.Rationale)
	return nil
}
