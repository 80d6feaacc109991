package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resumematch/config"
	"resumematch/internal/logger"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	ephemeral bool
	logLevel  string
	log       *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "resumematch",
	Short: "Resume matcher - index resumes and rank them against job descriptions",
	Long: `resumematch ingests plain-text resumes, indexes them for semantic recall,
and ranks the closest candidates for a job description with a language model.

Example usage:
  resumematch ingest ./resumes               # Ingest every resume under a directory
  resumematch search -q "golang kubernetes"  # Nearest profiles by embedding distance
  resumematch match --file job.txt --top 5   # Rank candidates for a job
  resumematch feedback add <id> --positive   # Record recruiter feedback`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log, err = logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./resumematch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "workspace directory holding .resumematch/ (default is current directory)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep profiles and vectors in memory only")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
