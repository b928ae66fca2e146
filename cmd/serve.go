package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathakanu/mediping/internal/api"
	"github.com/pathakanu/mediping/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			log := newLogger(cfg)

			a, err := wireApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a.scheduler.Start(ctx)

	server := &http.Server{
		Addr: ":" + a.cfg.Port,
		Handler: api.NewRouter(api.Options{
			Store:    a.store,
			Engine:   a.scheduler,
			Webhook:  a.bot.Handler(),
			Gatherer: a.registry,
			Log:      a.log,
			Location: a.cfg.LocalTimezone,
			Context:  ctx,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("port", a.cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(ctx, server, a, errCh)
}

func waitForShutdown(ctx context.Context, server *http.Server, a *app, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var serveErr error
	select {
	case sig := <-stop:
		a.log.WithField("signal", sig.String()).Info("shutting down...")
	case <-ctx.Done():
		a.log.Info("shutting down...")
	case serveErr = <-errCh:
		a.log.WithError(serveErr).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("server shutdown error")
	}
	if a.scheduler.Running() {
		a.scheduler.Stop()
	}
	a.log.WithFields(logrus.Fields{"tracked": a.scheduler.TrackingStatus().Total}).Info("shutdown complete")
	return serveErr
}
