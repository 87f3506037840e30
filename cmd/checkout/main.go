package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-cost/internal/cartfile"
	"github.com/noah-isme/checkout-cost/internal/checkout"
	"github.com/noah-isme/checkout-cost/internal/common"
	"github.com/noah-isme/checkout-cost/internal/config"
	"github.com/noah-isme/checkout-cost/internal/events"
	"github.com/noah-isme/checkout-cost/internal/inventory"
	"github.com/noah-isme/checkout-cost/internal/obs"
	"github.com/noah-isme/checkout-cost/internal/payment"
	"github.com/noah-isme/checkout-cost/internal/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	os.Exit(run(context.Background(), cfg, logger, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file       = fs.String("file", cfg.CartFile, "cart document (YAML); defaults to CART_FILE")
		cartID     = fs.String("cart", "", "cart id to check out")
		customerID = fs.String("customer", "", "customer id; defaults to the cart owner")
		seed       = fs.Bool("seed", false, "overwrite stock counters with the document's stock section")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.CartFile = strings.TrimSpace(*file)
	if strings.TrimSpace(*cartID) == "" {
		fmt.Fprintln(stderr, "checkout: -cart is required")
		return 2
	}
	if err := cfg.ValidateCheckout(); err != nil {
		fmt.Fprintf(stderr, "checkout: %v\n", err)
		return 2
	}

	registry := prometheus.NewRegistry()
	metrics := obs.NewCheckoutMetrics(cfg.MetricsNamespace, nil, registry)
	defer writeMetrics(cfg.MetricsTextfile, registry, logger)

	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.TracingEnabled,
		ServiceName:   "checkout",
		Endpoint:      cfg.OTLPEndpoint,
		SamplingRatio: cfg.TracingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	dir, err := cartfile.Load(cfg.CartFile)
	if err != nil {
		logger.Error().Err(err).Msg("load cart document")
		return 2
	}

	redisClient, err := openRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect redis")
		return 2
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	store := inventory.RedisStore{Client: redisClient, Prefix: cfg.StockKeyPrefix}
	if *seed {
		for productID, qty := range dir.Stock() {
			if err := store.SetStock(ctx, productID, qty); err != nil {
				logger.Error().Err(err).Str("product_id", productID).Msg("seed stock")
				return 1
			}
		}
		logger.Info().Int("products", len(dir.Stock())).Msg("stock seeded")
	}

	customer := strings.TrimSpace(*customerID)
	if customer == "" {
		owner, ok := dir.CartOwner(*cartID)
		if !ok {
			reportError(stderr, pricing.ErrInvalidCart)
			return 1
		}
		customer = owner
	}

	svc := &checkout.Service{
		Customers: dir,
		Carts:     dir,
		Inventory: store,
		Payments:  paymentProvider(cfg, logger),
		Events:    &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}}},
		Metrics:   metrics,
		Logger:    logger,
	}
	res, err := svc.Checkout(ctx, *cartID, customer)
	if err != nil {
		reportError(stderr, err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "checkout: encode: %v\n", err)
		return 1
	}
	return 0
}

func reportError(w io.Writer, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(w, "%s: %s\n", appErr.Code, appErr.Message)
		return
	}
	fmt.Fprintf(w, "checkout: %v\n", err)
}

func openRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func paymentProvider(cfg *config.Config, logger zerolog.Logger) payment.Provider {
	if cfg.UseSandboxPayments() {
		logger.Warn().Msg("PAYMENT_GATEWAY_URL not set, using sandbox payments")
		return &payment.Sandbox{}
	}
	return payment.NewGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayKey, cfg.PaymentTimeout)
}

func writeMetrics(path string, gatherer prometheus.Gatherer, logger zerolog.Logger) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("write metrics textfile")
	}
}
