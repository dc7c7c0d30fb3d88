package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:3333", cfg.Catalog.URL)
	assert.Equal(t, time.Second, cfg.Scanner.Debounce.Duration())
	assert.Equal(t, "127.0.0.1:1979", cfg.Web.Listen)

	v, err := cfg.VariantFlags()
	require.NoError(t, err)
	assert.True(t, v.Continuous)
	assert.True(t, v.Typeahead)
	assert.False(t, v.PrefillPrice)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoppapp.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  url: https://catalog.example.com
  timeout: 3s
  refresh: 5m
scanner:
  debounce: 800ms
  lookup_workers: 4
variant:
  continuous: false
  typeahead: true
  prefill_price: true
`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com", cfg.Catalog.URL)
	assert.Equal(t, 3*time.Second, cfg.Catalog.Timeout.Duration())
	assert.Equal(t, 5*time.Minute, cfg.Catalog.Refresh.Duration())
	assert.Equal(t, 800*time.Millisecond, cfg.Scanner.Debounce.Duration())
	assert.Equal(t, 4, cfg.Scanner.LookupWorkers)

	v, err := cfg.VariantFlags()
	require.NoError(t, err)
	assert.False(t, v.Continuous, "manual-entry variant")
	assert.True(t, v.PrefillPrice)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHOPPAPP_CATALOG_URL", "http://10.0.0.5:3333")
	t.Setenv("SHOPPAPP_DEBOUNCE_MS", "1200")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:3333", cfg.Catalog.URL)
	assert.Equal(t, 1200*time.Millisecond, cfg.Scanner.Debounce.Duration())
}
