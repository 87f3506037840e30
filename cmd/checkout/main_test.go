package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-cost/internal/config"
)

const document = `
customers:
  - id: ana
    region: SOUTHEAST
    tier: GOLD
products:
  - id: phone
    price: "120.00"
    weight: "1.0"
    length: "10"
    width: "10"
    height: "10"
    category: ELECTRONICS
carts:
  - id: phones
    customer: ana
    items:
      - product: phone
        quantity: 10
stock:
  phone: 15
`

type fixture struct {
	cfg     *config.Config
	mr      *miniredis.Miniredis
	metrics string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	dir := t.TempDir()
	cartPath := filepath.Join(dir, "carts.yaml")
	require.NoError(t, os.WriteFile(cartPath, []byte(document), 0o600))
	metricsPath := filepath.Join(dir, "checkout.prom")

	cfg, err := config.LoadForTests(map[string]string{
		"REDIS_URL":            "redis://" + mr.Addr(),
		"CART_FILE":            cartPath,
		"STOCK_KEY_PREFIX":     "t:",
		"PAYMENT_GATEWAY_URL":  "",
		"OBS_ENABLE_TRACING":   "",
		"OBS_METRICS_TEXTFILE": metricsPath,
	})
	require.NoError(t, err)
	return fixture{cfg: cfg, mr: mr, metrics: metricsPath}
}

func TestRunSeedsAndChecksOut(t *testing.T) {
	f := newFixture(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), f.cfg, zerolog.Nop(), []string{"-seed", "-cart", "phones"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var res map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	require.Equal(t, true, res["success"])
	require.Equal(t, "816", res["total"])
	require.Equal(t, "purchase completed successfully", res["message"])
	require.Contains(t, res["transactionId"], "SBX-")

	left, err := f.mr.Get("t:stock:phone")
	require.NoError(t, err)
	require.Equal(t, "5", left)

	raw, err := os.ReadFile(f.metrics)
	require.NoError(t, err)
	require.Contains(t, string(raw), `checkout_checkout_attempts_total{result="completed"} 1`)
}

func TestRunReportsOutOfStock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set("t:stock:phone", "3"))
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), f.cfg, zerolog.Nop(), []string{"-cart", "phones", "-customer", "ana"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Equal(t, "out_of_stock: items out of stock\n", stderr.String())
	require.Empty(t, stdout.String())
}

func TestRunUnknownCartMatchesQuote(t *testing.T) {
	f := newFixture(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), f.cfg, zerolog.Nop(), []string{"-cart", "missing"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Equal(t, "invalid_cart: cart is empty or was not found\n", stderr.String())
	require.Empty(t, stdout.String())
}

func TestRunRequiresCart(t *testing.T) {
	f := newFixture(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, 2, run(context.Background(), f.cfg, zerolog.Nop(), nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "-cart is required")
}

func TestRunRejectsMissingConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.RedisURL = ""
	var stdout, stderr bytes.Buffer

	require.Equal(t, 2, run(context.Background(), f.cfg, zerolog.Nop(), []string{"-cart", "phones"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "REDIS_URL is required")
}
