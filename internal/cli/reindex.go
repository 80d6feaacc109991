package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resumematch/config"
	"resumematch/internal/adapter/store"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed stored chunks after the embedding config changes",
	Long: `Recompute every stored chunk vector with the configured embedding model
and stamp the index with the new embedding settings. Needed after changing
embedding.provider, embedding.model or embedding.dimension.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ephemeral {
		return fmt.Errorf("reindex has nothing to do with --ephemeral storage")
	}

	path := config.IndexDBPath(rootDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No index found. Run 'resumematch ingest' first.")
		return nil
	}

	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer db.Close()

	result, err := db.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if !result.NeedsMigration && !result.NeedsReembed {
		fmt.Println("Index is up to date.")
		return nil
	}

	if result.NeedsReembed {
		embedder, err := newEmbedder(ctx, cfg.Embedding)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		log.Info("re-embedding chunks", zap.String("reason", result.Reason), zap.String("model", embedder.ModelName()))

		start := time.Now()
		var bar *progressbar.ProgressBar
		done, err := db.Reembed(ctx, embedder, cfg.Embedding.BatchSize, func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Re-embedding[reset]"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
			}
			_ = bar.Set(done)
		})
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("re-embedded %d chunks before failing: %w", done, err)
		}
		fmt.Printf("Re-embedded %d chunks in %s\n", done, formatDuration(time.Since(start)))
	}

	if err := db.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to migrate index: %w", err)
	}
	fmt.Println("Index is up to date.")
	return nil
}
