package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"xpurge/internal/api"
	"xpurge/internal/billing"
	"xpurge/internal/cmdlog"
	"xpurge/internal/logging"
	"xpurge/internal/metrics"
	"xpurge/internal/theme"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("serve", func() error { return runServe(cmd) })
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default: server.addr)")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if cfg.Billing.WebhookSecret == "" {
		logging.Warn("webhook_disabled", map[string]any{"reason": "GUMROAD_WEBHOOK_SECRET not set"})
	}
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	h := api.NewHandler(newController(db, nil), db, billing.NewProcessor(db, cfg.Billing), cfg.Billing.WebhookSecret, cfg.Quota.DailyLimit)
	// WriteTimeout must outlast a full batch of maxBatch * pacing.
	servers := []*http.Server{{
		Addr:         cfg.Server.Addr,
		Handler:      h.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}}
	if cfg.Server.MetricsAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metrics.Mux(), ReadTimeout: 10 * time.Second})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logging.Info("server_listening", map[string]any{"addr": srv.Addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	theme.PrintBanner()
	err = g.Wait()
	logging.Info("server_stopped", nil)
	return err
}
