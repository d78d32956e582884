package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (THREADCRAFT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (THREADCRAFT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (THREADCRAFT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Admin        AdminConfig
	Events       EventsConfig
	Pricing      PricingConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// AdminConfig verifies admin tokens issued by the identity provider.
type AdminConfig struct {
	JWTSecret string `env:"JWT_SECRET" usage:"HS256 secret of admin tokens; empty disables the admin API" flag:"admin-jwt-secret"`
	Issuer    string `usage:"Expected iss claim of admin tokens" flag:"admin-issuer"`
}

// EventsConfig selects the order event sink. Without a URL events are logged.
type EventsConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL" usage:"AMQP URL of the order event broker" flag:"rabbitmq-url"`
	Exchange    string `default:"threadcraft.orders" usage:"Topic exchange for order events"`
}

// PricingConfig holds shipping and display currency settings. Amounts are
// minor units of the base currency.
type PricingConfig struct {
	ShippingFlat     int64  `default:"500"  usage:"Flat shipping charge" flag:"shipping-flat"`
	FreeShippingOver int64  `default:"0"    usage:"Subtotal waiving shipping; 0 disables" flag:"free-shipping-over"`
	DisplayRate      string `default:"1"    usage:"Base to display currency rate" flag:"display-rate"`
}

// Rate parses DisplayRate.
func (c PricingConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.DisplayRate)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse display rate %q", c.DisplayRate)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, errors.Errorf("display rate must be positive, got %s", rate)
	}
	return rate, nil
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "THREADCRAFT",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/threadcraft/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set THREADCRAFT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := c.Pricing.Rate(); err != nil {
		return err
	}
	if c.Pricing.ShippingFlat < 0 || c.Pricing.FreeShippingOver < 0 {
		return errors.New("shipping amounts must not be negative")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's THREADCRAFT_-prefixed configuration.
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
