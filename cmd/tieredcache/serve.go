package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/tieredcache/cache"
	"github.com/jonwraymond/tieredcache/health"
	"github.com/jonwraymond/tieredcache/observe"
	"github.com/jonwraymond/tieredcache/resilience"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a cache node with health, metrics and stats endpoints",
	Long: `Run a cache node. The node sweeps expired local entries on
cache.sweep_interval and serves:

  /healthz   liveness
  /readyz    readiness (all checks)
  /health    detailed check results
  /metrics   Prometheus metrics
  /stats     engine statistics as JSON

When server.admin.token_secret is set, bearer tokens holding the admin role
(see "tieredcache token") may also call:

  DELETE /cache/{key}   delete one key from both tiers
  POST   /cache/clear   clear both tiers
  POST   /cache/sweep   sweep expired local entries`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "shutdown failed", observe.F("error", err))
		}
	}()

	reaper, err := cache.NewReaper(a.engine, cache.ReaperConfig{
		Interval: cfg.Cache.SweepInterval,
	})
	if err != nil {
		return err
	}

	mux, err := newMux(a, newAggregator(a), reaper)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := reaper.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info(gctx, "listening", observe.F("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info(gctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newAggregator registers the node's health checks.
func newAggregator(a *app) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{
		Logger: a.logger.With(observe.F("component", "health")),
	})
	agg.Register("remote", health.NewBackendChecker(a.engine))
	agg.Register("hit_rate", health.NewHitRateChecker(a.engine, health.HitRateConfig{}))
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	if a.breaker != nil {
		agg.Register("remote_guard", health.NewCheckerFunc("remote_guard", a.guardStatus))
	}
	return agg
}

// guardStatus reports the breaker and bulkhead around the remote tier. An
// open breaker means every remote call is skipped.
func (a *app) guardStatus(context.Context) health.Result {
	details := map[string]any{
		"circuit":  a.breaker.State().String(),
		"failures": a.breaker.Failures(),
	}
	if a.bulkhead != nil {
		details["in_flight"] = a.bulkhead.Active()
		details["capacity"] = a.bulkhead.Capacity()
		details["rejected"] = a.bulkhead.Rejected()
	}
	if a.breaker.State() == resilience.StateOpen {
		return health.Degraded("remote circuit open").WithDetails(details)
	}
	return health.Healthy("remote calls flowing").WithDetails(details)
}

// newMux wires the probe, metrics and stats endpoints, plus the admin
// endpoints when they are enabled.
func newMux(a *app, agg *health.Aggregator, reaper *cache.Reaper) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /stats", statsHandler(a.engine))

	if a.cfg.AdminEnabled() {
		if err := registerAdmin(mux, a, reaper); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func statsHandler(engine *cache.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, engine.Stats())
	}
}
