package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"Storefront/internal/cache"
	"Storefront/internal/config"
	"Storefront/internal/datasync"
	"Storefront/internal/discount"
	"Storefront/internal/identity"
	"Storefront/internal/search"
	"Storefront/internal/storefront"
	"Storefront/pkg/kit"
)

const service = "storefront"

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  service,
		Usage: "keep a local catalog snapshot in sync and serve storefront queries",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "sync on a schedule and serve the storefront API",
				Action: serve,
			},
			{
				Name:   "sync",
				Usage:  "run one sync cycle and print its report",
				Action: syncOnce,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := cache.New(log)
	engine := search.New(c, log)
	defer engine.Close()

	session := identity.NewSession(identity.NewTokenMaker(cfg.JWTSecret))
	sched := newScheduler(cfg, log, c, session, datasync.NewMetrics(reg))

	sched.Start(ctx, cfg.SyncInterval)
	defer sched.Stop()

	s := &storefront.Server{Cache: c, Search: engine, Sync: sched, Log: log}
	if cfg.JWTSecret != "" {
		s.Session = session
	}

	h := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     reg,
		MetricsToken: cfg.MetricsToken,
		RateLimit:    cfg.RateLimit,
		RateWindow:   cfg.RateWindow,
	})

	if err := kit.RunHTTPServer(ctx, cfg.HTTPAddr, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return err
	}
	return nil
}

func syncOnce(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	c := cache.New(log)
	sched := newScheduler(cfg, log, c, identity.Static(cfg.Phone), nil)
	rep := sched.RunCycle(context.Background())

	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Report datasync.CycleReport   `json:"report"`
		Health []datasync.SliceHealth `json:"health"`
		Data   cache.Snapshot         `json:"data"`
	}{rep, sched.Health(), c.Snapshot()})
}

func newScheduler(cfg config.Config, log *zap.Logger, c *cache.Cache, id discount.IdentityProvider, m *datasync.Metrics) *datasync.Scheduler {
	client := storefront.NewCatalogClient(cfg.CatalogURL, cfg.FetchTimeout, log.Named("catalog_client"))
	return datasync.New(client, c, discount.NewTracker(), datasync.Options{
		Log:          log.Named("sync"),
		Metrics:      m,
		Identity:     id,
		FetchTimeout: cfg.FetchTimeout,
		RetryMax:     cfg.RetryMax,
		RetryInitial: cfg.RetryInitial,
		StaleAfter:   cfg.StaleAfter,
	})
}
