package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/atoll-cloud/atoll/engine"
	"github.com/atoll-cloud/atoll/journal"
	"github.com/atoll-cloud/atoll/telemetry"
)

// Observation revisions kept through daemon compaction.
const storeKeepRevisions = 100

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
	daemonDestructive bool
	daemonRetention   time.Duration
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Continuously reconcile the account toward the manifest",
	Long: `Run apply on an interval, re-reading nothing: the manifest loaded at
startup is the desired state until the daemon restarts.

Serves Prometheus metrics on /metrics and liveness on /health.
Shuts down gracefully on SIGTERM/SIGINT.

Examples:
  atoll daemon
  atoll daemon --interval 5m
  atoll daemon --metrics-addr :2112 --allow-destructive`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 5*time.Minute, "Reconcile interval")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", ":2112", "Metrics HTTP listen address")
	daemonCmd.Flags().BoolVar(&daemonDestructive, "allow-destructive", false, "Permit delete operations")
	daemonCmd.Flags().DurationVar(&daemonRetention, "journal-retention", 7*24*time.Hour, "Delete journal files older than this")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, engine.Options{
		AllowDestructive:  daemonDestructive,
		ContinueOnFailure: true,
	})
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	rt.log.Info().
		Dur("interval", daemonInterval).
		Str("metrics_addr", daemonMetricsAddr).
		Int("resources", len(rt.cfg.Resources)).
		Msg("daemon starting")

	var group run.Group

	// Reconcile loop
	loopCtx, cancelLoop := context.WithCancel(ctx)
	group.Add(func() error {
		return reconcileLoop(loopCtx, rt)
	}, func(error) {
		cancelLoop()
	})

	// Metrics and health server
	server := &http.Server{
		Addr:              daemonMetricsAddr,
		Handler:           daemonMux(rt),
		ReadHeaderTimeout: 5 * time.Second,
	}
	group.Add(func() error {
		rt.log.Info().Str("addr", daemonMetricsAddr).Msg("starting metrics server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	// Signal handling
	group.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err = group.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		rt.log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}

func reconcileLoop(ctx context.Context, rt *runtime) error {
	// First run immediately, then on the ticker.
	reconcileOnce(ctx, rt)

	ticker := time.NewTicker(daemonInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reconcileOnce(ctx, rt)
		}
	}
}

func reconcileOnce(ctx context.Context, rt *runtime) {
	ctx, span := telemetry.Tracer.Start(ctx, "daemon.reconcile")
	defer span.End()

	rt.tlog.LogReconcileStart(ctx, len(rt.cfg.Resources), false)
	summary, err := rt.engine.Apply(ctx, rt.cfg.Resources)
	if err != nil {
		rt.tlog.LogReconcileEnd(ctx, 0, 0, err)
		return
	}
	rt.tlog.LogReconcileEnd(ctx, summary.Changed, summary.Failed, nil)

	if rt.cfg.JournalDir != "" {
		stats, err := journal.Prune(rt.cfg.JournalDir, daemonRetention)
		if err != nil {
			rt.log.Warn().Err(err).Msg("journal prune failed")
		} else if stats.FilesRemoved > 0 {
			rt.log.Info().
				Int("files", stats.FilesRemoved).
				Int64("bytes", stats.BytesFreed).
				Msg("pruned old journal files")
		}
	}

	if rt.obs != nil {
		if err := rt.obs.Compact(storeKeepRevisions); err != nil {
			rt.log.Warn().Err(err).Msg("store compaction failed")
		}
	}
}

func daemonMux(rt *runtime) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}
