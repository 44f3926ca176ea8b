package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 5*time.Minute, c.SyncInterval)
	assert.Equal(t, 3, c.RetryMax)
	assert.Equal(t, 200*time.Millisecond, c.RetryInitial)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOREFRONT_CATALOG_URL", "https://catalog.example.com")
	t.Setenv("STOREFRONT_SYNC_INTERVAL", "30s")
	t.Setenv("STOREFRONT_STALE_AFTER", "5")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com", c.CatalogURL)
	assert.Equal(t, 30*time.Second, c.SyncInterval)
	assert.Equal(t, 5, c.StaleAfter)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STOREFRONT_SYNC_INTERVAL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STOREFRONT_SYNC_INTERVAL", "0s")
	_, err = Load()
	assert.ErrorIs(t, err, ErrBadInterval)

	t.Setenv("STOREFRONT_SYNC_INTERVAL", "1m")
	t.Setenv("STOREFRONT_CATALOG_URL", "catalog:8082")
	_, err = Load()
	assert.ErrorIs(t, err, ErrBadCatalogURL)
}
