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
	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/config"
	"github.com/lazypower/mnemo/internal/graph"
	"github.com/lazypower/mnemo/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.eng.StartPurgeTimer(rt.cfg.PurgeInterval())

	if rt.cfg.Auth.JWTSecret == config.DevJWTSecret {
		rt.logger.Warn("signing tokens with the development placeholder secret")
	}
	issuer := auth.NewIssuer(rt.cfg.Auth.JWTSecret, rt.cfg.TokenTTL())
	schema, err := graph.NewSchema(rt.eng, issuer, rt.logger)
	if err != nil {
		return err
	}

	addr := rt.cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(rt.db, schema, issuer, rt.logger, VersionString()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("mnemo serving",
			zap.String("addr", addr),
			zap.String("driver", rt.db.Driver),
			zap.String("version", VersionString()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
