package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ink/api/internal/config"
	"ink/api/internal/logging"
	"ink/api/internal/store"
)

var (
	cfg     config.Config
	logger  zerolog.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "inkctl",
	Short:         "Operator tooling for the ink API",
	Long:          `inkctl runs migrations, rebuilds the search index and inspects notes directly against the ink database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logging.NewWithWriter(os.Stderr, level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB connects to DATABASE_URL. The caller closes the returned handle.
func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug().Msg("database connected")
	return db, nil
}
