package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/domain/inventory"
)

const defaultAddr = "0.0.0.0:8080"

// ConfigFiles are the YAML files consulted by LoadConfig, in order.
var ConfigFiles = []string{"config.yaml", "/etc/kart-pos/config.yaml"}

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty keeps all data in memory" flag:"database-url"`
	TaxRate     string `default:"0.08" usage:"Sales tax rate applied to every cart" flag:"tax-rate"`
	Inventory   InventoryConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// InventoryConfig holds the stock thresholds and startup seeding.
type InventoryConfig struct {
	CriticalStock   int  `default:"10" usage:"Stock at or below this is critical" flag:"critical-stock"`
	WarningStock    int  `default:"20" usage:"Stock at or below this is a warning" flag:"warning-stock"`
	SummaryLowStock int  `default:"15" usage:"Stock at or below this counts as low in the summary" flag:"summary-low-stock"`
	SeedDemoCatalog bool `default:"true" usage:"Load the demo catalog into an empty store" flag:"seed-demo-catalog"`
}

// AuthConfig controls bearer token signing and verification.
type AuthConfig struct {
	Secret   string        `usage:"HMAC secret for bearer tokens (POS_AUTH_SECRET)" flag:"auth-secret"`
	Issuer   string        `default:"kart-pos" usage:"Token issuer" flag:"auth-issuer"`
	TokenTTL time.Duration `default:"12h" usage:"Lifetime of issued tokens" flag:"token-ttl"`
}

// RateLimitConfig controls the per-client token bucket limiter.
type RateLimitConfig struct {
	RPS     float64       `default:"10" usage:"Sustained requests per second per client"`
	Burst   int           `default:"20" usage:"Burst size per client"`
	IdleTTL time.Duration `default:"10m" usage:"Forget clients idle for this long" flag:"rate-limit-idle-ttl"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files
// and flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     ConfigFiles,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values aconfig cannot.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required: set POS_AUTH_SECRET")
	}
	if _, err := c.Tax(); err != nil {
		return err
	}
	if c.Inventory.CriticalStock < 0 || c.Inventory.WarningStock < 0 || c.Inventory.SummaryLowStock < 0 {
		return errors.New("stock thresholds must not be negative")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}
	return nil
}

// Tax returns the parsed tax rate.
func (c *Config) Tax() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Errorf("tax rate %s is negative", rate)
	}
	return rate, nil
}

// Policy returns the configured stock thresholds.
func (c InventoryConfig) Policy() inventory.Policy {
	return inventory.Policy{
		CriticalStock:   c.CriticalStock,
		WarningStock:    c.WarningStock,
		SummaryLowStock: c.SummaryLowStock,
	}
}

// TokenConfig returns the signing parameters for auth.NewTokenManager.
func (c AuthConfig) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{Secret: c.Secret, Issuer: c.Issuer, TTL: c.TokenTTL}
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
