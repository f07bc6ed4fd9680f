package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ink/api/internal/search"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every live note and source into Meilisearch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cfg.MeiliURL) == "" {
			return fmt.Errorf("MEILI_URL is not set")
		}
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		count, err := search.NewService(meili, search.NewPgFTS(db), logger).ReindexAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
