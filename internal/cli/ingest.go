package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resumematch/internal/adapter/fs"
	"resumematch/internal/domain"
	"resumematch/internal/port"
	"resumematch/internal/usecase"
)

var (
	ingestID      string
	ingestSummary string
	ingestMeta    []string
	ingestForce   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>",
	Short: "Add resumes to the index",
	Long: `Ingest a single resume file or every matching file under a directory.

Each file is checked by the resume classifier, summarized, chunked and
embedded. Re-ingesting the same file replaces its profile and keeps any
recorded feedback.

Examples:
  resumematch ingest resume.txt --id alice --meta team=platform
  resumematch ingest ./resumes
  resumematch ingest notes.md --force      # Skip the resume classifier`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "profile id (single file only; default derives from the path)")
	ingestCmd.Flags().StringVar(&ingestSummary, "summary", "", "summary to store instead of generating one (single file only)")
	ingestCmd.Flags().StringArrayVar(&ingestMeta, "meta", nil, "metadata as key=value (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "ingest even when the classifier rejects the text")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", args[0], err)
	}

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	req := usecase.IngestRequest{
		Metadata:     meta,
		SkipClassify: ingestForce,
	}

	if !info.IsDir() {
		req.ID = ingestID
		req.Summary = ingestSummary
		res, err := a.engine.IngestFile(ctx, path, req)
		if err != nil {
			if errors.Is(err, domain.ErrNotAdmissible) {
				fmt.Printf("Rejected %s (score %d, confidence %.2f): %s\n",
					args[0], res.Verdict.Score, res.Verdict.Confidence, res.Verdict.Rationale)
			}
			return err
		}
		fmt.Printf("Ingested %s as %s (%d chunks)\n", args[0], res.ID, res.Chunks)
		return nil
	}

	if ingestID != "" || ingestSummary != "" {
		return fmt.Errorf("%w: --id and --summary apply to a single file", domain.ErrValidation)
	}
	return ingestDir(cmd, a, path, req)
}

func ingestDir(cmd *cobra.Command, a *app, root string, req usecase.IngestRequest) error {
	ctx := cmd.Context()

	var walker port.FileWalker = fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Walk(root)
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if len(files) == 0 {
		fmt.Println("No matching files found.")
		return nil
	}

	var (
		start   = time.Now()
		added   int
		chunks  int
		skipped []string
	)
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := a.engine.IngestFile(ctx, f.Path, req)
		_ = bar.Add(1)
		rel, _ := filepath.Rel(root, f.Path)

		switch {
		case err == nil:
			added++
			chunks += res.Chunks
		case errors.Is(err, domain.ErrNotAdmissible),
			errors.Is(err, domain.ErrUnsupportedFormat),
			errors.Is(err, domain.ErrValidation):
			log.Debug("skipping file", zap.String("path", rel), zap.Error(err))
			skipped = append(skipped, rel)
		default:
			return fmt.Errorf("ingest %s: %w", rel, err)
		}
	}

	fmt.Printf("Ingested %d of %d files (%d chunks) in %s\n", added, len(files), chunks, formatDuration(time.Since(start)))
	if len(skipped) > 0 {
		fmt.Printf("Skipped %d files:\n", len(skipped))
		for _, p := range skipped {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

// parseMeta turns key=value flags into metadata.
func parseMeta(pairs []string) (domain.Metadata, error) {
	meta := domain.Metadata{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: metadata %q is not key=value", domain.ErrValidation, p)
		}
		meta[k] = strings.TrimSpace(v)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
