// Package config holds runtime settings for the auth API process: defaults,
// an optional YAML overlay file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds runtime settings for the API process.
type Config struct {
	HTTPAddr       string   `yaml:"http_addr"`       // listen address (e.g. ":3000")
	JWTSecret      string   `yaml:"jwt_secret"`      // HS256 signing secret, required
	BcryptCost     int      `yaml:"bcrypt_cost"`     // password hashing work factor
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS origins; empty allows any
	StoreDriver    string   `yaml:"store_driver"`    // "postgres" or "memory"
	AutoMigrate    bool     `yaml:"auto_migrate"`    // apply embedded migrations at start
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// LoadDefaults populates Config with development defaults. There is no
// default secret.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.BcryptCost = 10
	c.StoreDriver = StorePostgres
	c.AutoMigrate = true
}

// Load builds a Config by applying defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	var cfg Config
	cfg.LoadDefaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.HTTPAddr = ":" + port
	}
	c.HTTPAddr = firstNonEmpty(os.Getenv("HTTP_ADDR"), c.HTTPAddr)
	c.JWTSecret = firstNonEmpty(os.Getenv("JWT_SECRET"), c.JWTSecret)
	c.BcryptCost = intFromEnv("BCRYPT_COST", c.BcryptCost)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = parseCSV(v)
	}
	c.StoreDriver = strings.ToLower(firstNonEmpty(os.Getenv("STORE_DRIVER"), c.StoreDriver))
	c.AutoMigrate = boolFromEnv("AUTO_MIGRATE", c.AutoMigrate)
}

// Validate reports configuration the process must not start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingSecret
	}
	if c.StoreDriver != StorePostgres && c.StoreDriver != StoreMemory {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HTTPAddr == "" {
		return errors.New("http address is empty")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFromEnv reads a boolean from env var name, falling back to defaultVal when empty or invalid.
func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// intFromEnv reads an int from env var name, falling back to defaultVal when empty or invalid.
func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// parseCSV splits comma-separated list and trims spaces; empty entries are skipped.
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
