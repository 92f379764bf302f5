package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/seasonsim/internal/adapters/http/api"
	"github.com/okian/seasonsim/internal/adapters/http/swagger"
	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/app"
	"github.com/okian/seasonsim/internal/config"
	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored ratings and summaries over read-only HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := repository.Open(ctx, c.cfg.DBPath, repository.WithLogger(c.log.Named("store")))
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					c.log.Warn(ctx, "closing store", logger.Error(err))
				}
			}()

			// Built only for its alias table, so path lookups accept old codes.
			p, err := app.New(c.cfg, app.WithLogger(c.log))
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", c.cfg.Addr)
			if err != nil {
				return fmt.Errorf("%w: %w", api.ErrServe, err)
			}
			return serve(ctx, ln, newHandler(ctx, store, p.Normalizer(), c.log), c.log)
		},
	}
	cmd.Flags().String("addr", config.New().Addr, "HTTP listen address")
	return cmd
}

// newHandler wires the results API and its OpenAPI document.
func newHandler(ctx context.Context, store api.Dependencies, n *alias.Normalizer, l logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(store, api.WithNormalizer(n), api.WithLogger(l.Named("http"))).Register(ctx, mux)
	return mux
}

// serve runs the HTTP server on ln until ctx is canceled, then shuts it
// down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, l logger.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	l.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
		return fmt.Errorf("%w: shutdown: %w", api.ErrServe, err)
	}
	l.Info(ctx, "server stopped")
	return nil
}
