package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/server"
)

func newServeCommand(initObs observabilityInit) *cobra.Command {
	var bindings map[string]string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve screening over HTTP",
		Long: `Serve screening over HTTP until interrupted.

Endpoints:
  POST /v1/screen   Screen the posted series
  GET  /v1/params   Default screening parameters
  GET  /v1/cache    Result cache statistics
  GET  /healthz     Liveness
  GET  /readyz      Readiness
  GET  /metrics     Prometheus metrics

The screening flags set the defaults a request may override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, bindings)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, cfg, initObs)
		},
	}

	flags := cmd.Flags()
	bindings = screeningBindings(flags)

	flags.String("addr", config.DefaultServerAddr, "Listen address")
	flags.String("max-body-size", config.DefaultMaxBodySize, "Maximum request body size (e.g. 8MB, 512KiB)")
	flags.Float64("rate-limit", config.DefaultRateLimit, "Sustained screen requests per second (0 = unlimited)")
	flags.Int("rate-burst", config.DefaultRateBurst, "Screen request burst size")
	flags.String("result-cache-size", config.DefaultResultCacheSize, "Memory for cached screening responses (0 = disabled)")

	maps.Copy(bindings, map[string]string{
		"addr":              "server.addr",
		"max-body-size":     "server.max_body_size",
		"rate-limit":        "server.rate_limit",
		"rate-burst":        "server.rate_burst",
		"result-cache-size": "server.result_cache_size",
	})

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, initObs observabilityInit) (err error) {
	providers, err := initObs(cfg, observability.ModeServe, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(ctx)))
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	sm, err := observability.NewScreeningMetrics(providers.Meter)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.Server, cfg.Screening,
		server.WithLogger(providers.Logger),
		server.WithTracer(providers.Tracer),
		server.WithREDMetrics(red),
		server.WithMetricsHandler(providers.MetricsHandler),
		server.WithScreenerOptions(
			screening.WithLogger(providers.Logger),
			screening.WithTracer(providers.Tracer),
			screening.WithRecorder(sm),
		),
	)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx)
}
