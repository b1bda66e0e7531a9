package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "HTTP server port")
	_ = v.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log.WithField("module", "main")

	handler := api.NewHandler(a.docs, a.log)

	auditor := api.NewStockAuditor(handler.Repo, a.log)
	auditor.Enabled = a.cfg.AuditEnabled
	auditor.Interval = a.cfg.AuditInterval
	auditor.Start()
	defer auditor.Stop()

	server := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           api.NewRouter(handler, a.cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		backend := "sqlite"
		if a.cfg.DBPath == "" {
			backend = "memory"
		}
		log.WithFields(logrus.Fields{
			"addr":    server.Addr,
			"backend": backend,
			"db_path": a.cfg.DBPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			config.LogError(a.log, "main", "ListenAndServe", nil, err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		config.LogError(a.log, "main", "Shutdown", nil, err)
		return err
	}
	log.Info("server stopped")
	return nil
}
