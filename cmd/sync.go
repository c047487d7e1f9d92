package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/connectivity"
	"github.com/langlearn/langlearn/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued mutations to the remote store once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := openOnlineRemote(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		results, err := newSyncEngine(s, r).SyncAll(ctx)
		printPassResults(results)
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync in the background whenever the remote store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := openRemote()
		if err != nil {
			return err
		}
		defer r.Close()

		prober := connectivity.NewProber(r, cfg.Sync.ProbeInterval, logger)
		if err := prober.Start(); err != nil {
			return err
		}
		defer prober.Stop()

		logger.Info("watching for connectivity", "probe_interval", cfg.Sync.ProbeInterval, "sync_interval", cfg.Sync.Interval)
		return newSyncEngine(s, r).Watch(ctx, prober)
	},
}

func printPassResults(results []syncer.PassResult) {
	if len(results) == 0 {
		fmt.Println("Nothing to sync.")
		return
	}
	fmt.Printf("%-16s  %9s  %6s  %6s  %8s\n", "Collection", "Attempted", "Synced", "Failed", "Deferred")
	fmt.Println(strings.Repeat("─", 53))
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("%-16s  %s\n", r.Collection, "(pass already running)")
			continue
		}
		fmt.Printf("%-16s  %9d  %6d  %6d  %8d\n", r.Collection, r.Attempted, r.Synced, r.Failed, r.Deferred)
	}
}
