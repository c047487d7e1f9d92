package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the local mutation queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unsynced mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, _ := cmd.Flags().GetString("collection")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		collections := []string{collection}
		if collection == "" {
			if collections, err = s.PendingCollections(ctx); err != nil {
				return err
			}
		}

		var recs []store.MutationRecord
		for _, c := range collections {
			batch, err := s.ListUnsyncedMutations(ctx, c)
			if err != nil {
				return err
			}
			recs = append(recs, batch...)
		}
		if len(recs) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		fmt.Printf("%-6s  %-16s  %-19s  %-8s  %-19s  %s\n",
			"Seq", "Collection", "Created", "Attempts", "Next attempt", "Last error")
		fmt.Println(strings.Repeat("─", 100))
		for _, r := range recs {
			next := "-"
			if r.NextAttemptAt != nil {
				next = r.NextAttemptAt.Local().Format("2006-01-02 15:04:05")
			}
			lastErr := r.LastError
			if len(lastErr) > 40 {
				lastErr = lastErr[:37] + "..."
			}
			fmt.Printf("%-6d  %-16s  %-19s  %-8d  %-19s  %s\n",
				r.Sequence, r.Collection, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Attempts, next, lastErr)
		}
		fmt.Printf("\n%d pending\n", len(recs))
		return nil
	},
}

var queuePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete synced mutations older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.PruneSynced(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d synced mutations\n", n)
		return nil
	},
}

func init() {
	queueListCmd.Flags().String("collection", "", "Only list this collection")
	queuePruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Minimum age of synced mutations to delete")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queuePruneCmd)
}
