package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/taskrelay/pkg/controller/http"
	"github.com/secmon-lab/taskrelay/pkg/service/worker"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
	"github.com/secmon-lab/taskrelay/pkg/utils/safe"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cli.Command {
	var addr string
	var allowedOrigins []string
	var legacyRoutes bool
	var staleInterval time.Duration
	var staleThreshold time.Duration
	var rt runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TASKRELAY_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origin",
			Usage:       "Origin allowed by CORS (repeatable, none by default)",
			Sources:     cli.EnvVars("TASKRELAY_ALLOWED_ORIGIN"),
			Destination: &allowedOrigins,
		},
		&cli.BoolFlag{
			Name:        "legacy-routes",
			Usage:       "Serve the query-string endpoints (/new, /start, /update, /delete, /all)",
			Value:       true,
			Sources:     cli.EnvVars("TASKRELAY_LEGACY_ROUTES"),
			Destination: &legacyRoutes,
		},
		&cli.DurationFlag{
			Name:        "stale-interval",
			Usage:       "How often to look for tasks stuck in STARTED (0 disables)",
			Value:       5 * time.Minute,
			Category:    "Worker",
			Sources:     cli.EnvVars("TASKRELAY_STALE_INTERVAL"),
			Destination: &staleInterval,
		},
		&cli.DurationFlag{
			Name:        "stale-threshold",
			Usage:       "Age after which a STARTED task is reported",
			Value:       time.Hour,
			Category:    "Worker",
			Sources:     cli.EnvVars("TASKRELAY_STALE_THRESHOLD"),
			Destination: &staleThreshold,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, err := rt.build(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			var monitor *worker.StaleTaskMonitor
			if staleInterval > 0 {
				monitor = worker.NewStaleTaskMonitor(repo, staleInterval, staleThreshold)
				if err := monitor.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start stale task monitor")
				}
				defer monitor.Stop()
			}

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(uc,
					httpctrl.WithAllowedOrigins(allowedOrigins...),
					httpctrl.WithLegacyRoutes(legacyRoutes),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"repository", rt.repo,
					"dispatch", rt.dispatch,
					"channel", rt.channel,
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logging.Default().Info("Shutting down HTTP server")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}
