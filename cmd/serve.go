package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/api"
	"github.com/langlearn/langlearn/internal/connectivity"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and sync in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		deps := api.Deps{
			Recorder: s,
			Analyzer: newAnalysisClient(),
			Logger:   logger,
		}

		if cfg.RemoteEnabled() {
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

			engine := newSyncEngine(s, r)
			deps.Status = prober
			deps.Syncer = engine
			deps.Recommender = newRecommender(r)
			deps.Quizzes = newQuizService(r)

			go func() {
				if err := engine.Watch(ctx, prober); err != nil {
					logger.Error("background sync stopped", "err", err)
				}
			}()
		} else {
			logger.Warn("no remote store configured; serving local writes only")
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewServer(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Server.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
