package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

// Development stand-in for the remote catalog service.
func main() {
	_ = godotenv.Load()

	service := "catalog"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	port := getenv("PORT", "8082")

	store, closeStore, err := openStore(ctx, os.Getenv("DATABASE_URL"), log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	s := &catalog.Server{Store: store, Log: log, AdminToken: os.Getenv("ADMIN_TOKEN")}
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     reg,
		MetricsToken: os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(ctx, ":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openStore uses Postgres when dsn is set and seeds it on first run; otherwise
// it serves the demo catalog from memory.
func openStore(ctx context.Context, dsn string, log *zap.Logger) (catalog.Store, func(), error) {
	if dsn == "" {
		log.Info("using in-memory catalog")
		return catalog.NewStore(), func() {}, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := catalog.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if _, ok, err := store.Document(ctx, catalog.DocKits); err == nil && !ok {
		if err := catalog.Seed(ctx, store, catalog.DemoFixture(time.Now().UTC())); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("seeded empty catalog database")
	}

	return store, func() { _ = db.Close() }, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
