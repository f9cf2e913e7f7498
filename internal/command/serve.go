package command

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bornholm/burpacl/internal/setup"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ACL HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handler, err := setup.NewHandlerFromConfig(ctx, conf)
		if err != nil {
			return errors.Wrap(err, "could not generate handler from config")
		}

		server := &http.Server{
			Addr:              string(conf.HTTP.Address),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errs := make(chan error, 1)

		go func() {
			slog.InfoContext(ctx, "http server listening", slog.String("addr", server.Addr))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- errors.WithStack(err)
			}

			close(errs)
		}()

		select {
		case err := <-errs:
			return err
		case <-ctx.Done():
		}

		slog.InfoContext(ctx, "shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "could not shutdown http server", log.Error(errors.WithStack(err)))
			return errors.WithStack(err)
		}

		return nil
	},
}
