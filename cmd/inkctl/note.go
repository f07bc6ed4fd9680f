package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ink/api/internal/notes"
	"ink/api/internal/store"
)

var hardDelete bool

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Inspect or remove notes without going through the API",
}

var noteGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Print a fully hydrated note as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		note, err := notes.NewEngine(store.NewPostgresStore(db)).ByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if note == nil {
			return notes.ErrNoNote
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(note)
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Soft delete a note, or remove it permanently with --hard",
	Long: `Delete soft-deletes a note the same way the API does.

--hard is an operator-only escape hatch: it removes the row outright,
bypassing soft delete. The API never does this except to undo a
half-finished create.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		engine := notes.NewEngine(store.NewPostgresStore(db))
		if hardDelete {
			if err := engine.HardDelete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note removed: %s\n", args[0])
			return nil
		}
		deleted, err := engine.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if deleted == nil {
			return notes.ErrNoNote
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", deleted.ID)
		return nil
	},
}

func init() {
	noteDeleteCmd.Flags().BoolVar(&hardDelete, "hard", false, "Operator only: remove the row instead of marking it deleted")
	noteCmd.AddCommand(noteGetCmd, noteDeleteCmd)
	rootCmd.AddCommand(noteCmd)
}
