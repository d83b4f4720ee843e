package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{"CONFIG_FILE", "PORT", "HTTP_ADDR", "JWT_SECRET", "BCRYPT_COST", "ALLOWED_ORIGINS", "STORE_DRIVER", "AUTO_MIGRATE"}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{HTTPAddr: ":3000", BcryptCost: 10, StoreDriver: StorePostgres, AutoMigrate: true}, cfg)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecret)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		HTTPAddr:       "127.0.0.1:8080",
		JWTSecret:      "s3cret",
		BcryptCost:     12,
		AllowedOrigins: []string{"https://a.example", "https://b.example"},
		StoreDriver:    StoreMemory,
		AutoMigrate:    false,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.HTTPAddr)

	t.Setenv("HTTP_ADDR", ":5000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
jwt_secret: from-file
bcrypt_cost: 11
allowed_origins:
  - https://app.example
store_driver: memory
auto_migrate: false
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "from-env", cfg.JWTSecret, "env wins over file")
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bcrypt_cost: [1, 2"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("BCRYPT_COST", "lots")
	t.Setenv("AUTO_MIGRATE", "maybe")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.AutoMigrate)
}

func TestValidate(t *testing.T) {
	valid := Config{HTTPAddr: ":3000", JWTSecret: "s", BcryptCost: 10, StoreDriver: StorePostgres}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"blank secret", func(c *Config) { c.JWTSecret = "   " }},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"cost too low", func(c *Config) { c.BcryptCost = 3 }},
		{"cost too high", func(c *Config) { c.BcryptCost = 32 }},
		{"empty addr", func(c *Config) { c.HTTPAddr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
