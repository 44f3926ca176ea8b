// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "storefront"

type Config struct {
	HTTPAddr   string `envconfig:"HTTP_ADDR" default:":8080"`
	CatalogURL string `envconfig:"CATALOG_URL" default:"http://localhost:8082"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	RetryMax     int           `envconfig:"RETRY_MAX" default:"3"`
	RetryInitial time.Duration `envconfig:"RETRY_INITIAL" default:"200ms"`
	StaleAfter   int           `envconfig:"STALE_AFTER" default:"3"`

	RateLimit  int           `envconfig:"RATE_LIMIT" default:"120"`
	RateWindow time.Duration `envconfig:"RATE_WINDOW" default:"1m"`

	MetricsToken string `envconfig:"METRICS_TOKEN"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	// Phone pins the identity for the sync command; serve uses the session instead.
	Phone string `envconfig:"PHONE"`
}

var (
	ErrBadCatalogURL = errors.New("catalog url must be absolute http(s)")
	ErrBadInterval   = errors.New("sync interval must be positive")
)

// Load reads STOREFRONT_* variables over the defaults.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.CatalogURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBadCatalogURL
	}
	if c.SyncInterval <= 0 {
		return ErrBadInterval
	}
	return nil
}
