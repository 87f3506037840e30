package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsTextfile  string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingRatio     float64

	RedisURL       string
	StockKeyPrefix string

	PaymentGatewayURL string
	PaymentGatewayKey string
	PaymentTimeout    time.Duration

	CartFile string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:            valueOrDefault(k.String("APP_ENV"), "development"),
		LogFormat:         valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:  valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
		MetricsTextfile:   strings.TrimSpace(k.String("OBS_METRICS_TEXTFILE")),
		TracingEnabled:    parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingRatio:      parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		RedisURL:          strings.TrimSpace(k.String("REDIS_URL")),
		StockKeyPrefix:    valueOrDefault(k.String("STOCK_KEY_PREFIX"), "checkout:"),
		PaymentGatewayURL: strings.TrimSpace(k.String("PAYMENT_GATEWAY_URL")),
		PaymentGatewayKey: strings.TrimSpace(k.String("PAYMENT_GATEWAY_KEY")),
		PaymentTimeout:    parseDuration(k.String("PAYMENT_TIMEOUT"), "10s"),
		CartFile:          strings.TrimSpace(k.String("CART_FILE")),
	}

	if cfg.TracingRatio < 0 || cfg.TracingRatio > 1 {
		return nil, errors.New("OBS_TRACING_SAMPLING_RATIO must be between 0 and 1")
	}
	return cfg, nil
}

// ValidateCheckout checks the settings the checkout binary cannot run without.
// A missing gateway URL is allowed and selects the sandbox provider.
func (c *Config) ValidateCheckout() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.CartFile == "" {
		errs = append(errs, errors.New("CART_FILE is required"))
	}
	return errors.Join(errs...)
}

// UseSandboxPayments reports whether no payment gateway is configured.
func (c *Config) UseSandboxPayments() bool {
	return strings.TrimSpace(c.PaymentGatewayURL) == ""
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
