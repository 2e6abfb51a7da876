package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MaxAge)
	assert.Equal(t, 10, cfg.Console.PageSize)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
backend:
  base_url: https://api.example.com
cache:
  driver: sqlite
  max_age: 1m
console:
  page_size: 25
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("BACKEND_TOKEN", "secret-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "secret-token", cfg.Backend.Token)
	assert.Equal(t, CacheDriverSQLite, cfg.Cache.Driver)
	assert.Equal(t, time.Minute, cfg.Cache.MaxAge)
	assert.Equal(t, 25, cfg.Console.PageSize)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{
		Backend: BackendConfig{BaseURL: "http://x"},
		Cache:   CacheConfig{Driver: CacheDriverRedis},
		Console: ConsoleConfig{PageSize: 10},
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Cache.Driver = "disk"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Backend.BaseURL = ""
	assert.Error(t, bad.Validate())

	bad = base
	bad.Console.PageSize = 0
	assert.Error(t, bad.Validate())
}
