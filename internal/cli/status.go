package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage location and index size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.engine.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if ephemeral {
			fmt.Println("Storage:    in-memory")
		} else {
			fmt.Printf("Storage:    %s (ledger: %s)\n", rootDir, cfg.Storage.Ledger)
		}
		fmt.Printf("Embedding:  %s/%s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		fmt.Printf("Oracle:     %s/%s\n", cfg.Oracle.Provider, cfg.Oracle.Model)
		fmt.Printf("Profiles:   %d\n", stats.Profiles)
		fmt.Printf("Chunks:     %d\n", stats.Chunks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
