package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ink/api/internal/app"
	"ink/api/internal/session"
	"ink/api/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API sessions",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue [auth-id]",
	Short: "Issue an access and refresh token pair for an auth subject",
	Long: `Issue signs an access token for the given auth subject and stores a
refresh session in Redis. The subject does not need a reader yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is not set")
		}
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		sessions, err := session.NewRedisStore(cmd.Context(), cfg.RedisURL)
		if err != nil {
			return err
		}
		defer sessions.Close()

		svc := app.New(cfg, app.Deps{Store: store.NewPostgresStore(db), Sessions: sessions, Log: logger})
		issued, err := svc.IssueSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"token":        issued.Token,
			"refreshToken": issued.RefreshToken,
			"readerId":     issued.ReaderID,
			"expiresAt":    issued.ExpiresAt,
		})
	},
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}
