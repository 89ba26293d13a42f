package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flisboa999/guiaturismo/internal/bootstrap"
	httptransport "github.com/flisboa999/guiaturismo/internal/transport/http"
)

type serveFlags struct {
	listen          string
	shutdownTimeout time.Duration
}

func NewServeCommand() *cobra.Command {
	f := &serveFlags{shutdownTimeout: 5 * time.Second}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the callable API, the live view and the static client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.WithError(err).Error("close resources failed")
				}
			}()

			addr := cfg.HTTPAddr()
			if f.listen != "" {
				addr = f.listen
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httptransport.NewRouter(app.HTTPDependencies()),
				ReadHeaderTimeout: 5 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.WithField("addr", server.Addr).Info("server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			return waitForShutdown(server, serveErr, f.shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&f.listen, "listen", "", "Listen address, overrides app.host and app.port")
	cmd.Flags().DurationVar(&f.shutdownTimeout, "shutdown-timeout", f.shutdownTimeout, "Graceful shutdown timeout")
	return cmd
}

func waitForShutdown(server *http.Server, serveErr <-chan error, timeout time.Duration) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return err
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
		return err
	}
	return nil
}
