package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/funscreener/internal/api"
	"github.com/sells-group/funscreener/internal/config"
	"github.com/sells-group/funscreener/internal/db"
	"github.com/sells-group/funscreener/internal/marketcap"
	"github.com/sells-group/funscreener/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the market-cap HTTP API and snapshot scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScreener(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		health := func(ctx context.Context) error { return db.Ping(ctx, env.Pool) }
		srv := buildServer(env.Service, health, cfg.Server, resolvePort(servePort, cfg.Server.Port))

		var sched *scheduler.Scheduler
		if cfg.Schedule.Enabled {
			sched, err = scheduler.New(env.Service, cfg.Schedule)
			if err != nil {
				return err
			}
		}

		return runServer(ctx, srv, sched)
	},
}

func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// buildServer wires the API router into an http.Server.
func buildServer(svc marketcap.Screener, health api.HealthFunc, sc config.ServerConfig, port int) *http.Server {
	router := api.NewRouter(svc, health, api.Options{
		APIKey:         sc.APIKey,
		APIKeyHeader:   sc.APIKeyHeader,
		AllowedOrigins: sc.AllowedOrigins,
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runServer runs srv and the optional scheduler until ctx is cancelled or
// either fails, then shuts both down.
func runServer(ctx context.Context, srv *http.Server, sched *scheduler.Scheduler) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
