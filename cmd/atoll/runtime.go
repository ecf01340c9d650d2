package main

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/config"
	"github.com/atoll-cloud/atoll/doapi"
	"github.com/atoll-cloud/atoll/engine"
	"github.com/atoll-cloud/atoll/journal"
	"github.com/atoll-cloud/atoll/policy"
	"github.com/atoll-cloud/atoll/resources"
	"github.com/atoll-cloud/atoll/store"
	"github.com/atoll-cloud/atoll/telemetry"
)

// runtime wires the manifest, the API client and every optional
// subsystem one command needs.
type runtime struct {
	cfg      *config.Config
	client   *godo.Client
	registry *resources.Registry
	engine   *engine.Engine
	journal  *journal.Journal
	obs      *store.Store
	metrics  *telemetry.Metrics
	tlog     *telemetry.Logger
	log      zerolog.Logger
	shutdown func(context.Context) error
}

func newRuntime(ctx context.Context, opts engine.Options) (*runtime, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(logLevel())
	tlog := telemetry.NewLogger("atoll")
	log := tlog.Logger

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "atoll",
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	metrics, err := telemetry.InitMetrics(telemetry.Meter)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	client, err := doapi.NewClient(doapi.Options{Token: flagToken})
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	defaults := resources.Defaults{
		PageSize:     cfg.Defaults.PageSize,
		Timeout:      cfg.Defaults.Timeout,
		PollInterval: cfg.Defaults.PollInterval,
		Metrics:      metrics,
	}
	registry := resources.NewRegistry(client, defaults, log)

	rt := &runtime{
		cfg:      cfg,
		client:   client,
		registry: registry,
		metrics:  metrics,
		tlog:     tlog,
		log:      log,
		shutdown: shutdown,
	}

	var gate engine.Gate
	if cfg.PolicyDir != "" {
		g := policy.NewGate(log)
		if err := g.LoadDir(ctx, cfg.PolicyDir); err != nil {
			rt.close(ctx)
			return nil, fmt.Errorf("loading policies: %w", err)
		}
		gate = g
	}

	if cfg.JournalDir != "" {
		rt.journal, err = journal.Open(cfg.JournalDir)
		if err != nil {
			rt.close(ctx)
			return nil, fmt.Errorf("opening journal: %w", err)
		}
	}

	if cfg.StoreDir != "" {
		rt.obs, err = store.Open(cfg.StoreDir)
		if err != nil {
			rt.close(ctx)
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	rt.engine = engine.New(registry, gate, rt.journal, metrics, log, opts)
	if rt.obs != nil {
		rt.engine = rt.engine.WithStore(rt.obs)
	}

	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("closing journal failed")
		}
	}
	if rt.obs != nil {
		if err := rt.obs.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("closing store failed")
		}
	}
	if rt.shutdown != nil {
		if err := rt.shutdown(ctx); err != nil {
			rt.log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}
}
