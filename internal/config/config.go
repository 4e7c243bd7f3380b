// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type StripePrices struct {
	Essencial string `yaml:"essencial"`
	Destaque  string `yaml:"destaque"`
	Elite     string `yaml:"elite"`
}

type StripeConfig struct {
	SecretKey     string       `yaml:"secret_key"`
	WebhookSecret string       `yaml:"webhook_secret"`
	Prices        StripePrices `yaml:"prices"`
}

type BillingConfig struct {
	TrialDays        int           `yaml:"trial_days"`
	EmailSearchLimit int           `yaml:"email_search_limit"` // customers checked in the fallback search
	ResyncInterval   time.Duration `yaml:"resync_interval"`
}

type RateLimitConfig struct {
	CheckoutPerMinute int `yaml:"checkout_per_minute"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Billing   BillingConfig   `yaml:"billing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Billing.TrialDays <= 0 {
		cfg.Billing.TrialDays = 30
	}
	if cfg.Billing.EmailSearchLimit <= 0 {
		cfg.Billing.EmailSearchLimit = 10
	}
	if cfg.Billing.ResyncInterval <= 0 {
		cfg.Billing.ResyncInterval = time.Hour
	}
	if cfg.RateLimit.CheckoutPerMinute <= 0 {
		cfg.RateLimit.CheckoutPerMinute = 5
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	// A missing provider key is a fatal configuration error, never a
	// per-request one. Dev mode swaps in the noop provider instead.
	if cfg.Stripe.SecretKey == "" && !dev {
		return nil, errors.New("stripe.secret_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
