package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		online := false
		if cfg.RemoteEnabled() {
			r, err := openRemote()
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			online = r.Ping(pingCtx) == nil
			cancel()
			r.Close()
		}

		pending, err := s.PendingCollections(ctx)
		if err != nil {
			return err
		}

		remoteDesc := "not configured"
		if cfg.RemoteEnabled() {
			remoteDesc = cfg.Remote.Driver + " " + theme.StatusLabel(online)
		}
		lines := []string{
			theme.Title.Render("langlearn status"),
			theme.KeyValue("remote", remoteDesc),
		}
		total := 0
		for _, c := range pending {
			n, err := s.CountMutations(ctx, c, true)
			if err != nil {
				return err
			}
			total += n
			lines = append(lines, theme.KeyValue(c, fmt.Sprintf("%d pending", n)))
		}
		lines = append(lines, theme.KeyValue("total", fmt.Sprintf("%d pending", total)))

		lipgloss.Println(theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		if cfg.RemoteEnabled() && !online {
			lipgloss.Fprintln(os.Stderr, theme.OfflineBanner())
		}
		return nil
	},
}
