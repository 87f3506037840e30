package checkout_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/checkout-cost/internal/checkout"
	"github.com/noah-isme/checkout-cost/internal/common"
	"github.com/noah-isme/checkout-cost/internal/events"
	"github.com/noah-isme/checkout-cost/internal/obs"
	"github.com/noah-isme/checkout-cost/internal/payment"
	"github.com/noah-isme/checkout-cost/internal/pricing"
)

type recorder struct {
	calls []string
}

func (r *recorder) add(call string) { r.calls = append(r.calls, call) }

type directory struct {
	rec      *recorder
	customer pricing.Customer
	cart     *pricing.Cart
	err      error
}

func (d *directory) Customer(_ context.Context, id string) (pricing.Customer, error) {
	d.rec.add("customer:" + id)
	if d.err != nil {
		return pricing.Customer{}, d.err
	}
	return d.customer, nil
}

func (d *directory) Cart(_ context.Context, cartID, _ string) (*pricing.Cart, error) {
	d.rec.add("cart:" + cartID)
	return d.cart, nil
}

type stock struct {
	rec          *recorder
	available    bool
	decremented  bool
	decrementErr error
	ids          []string
	qtys         []int64
}

func (s *stock) CheckAvailability(_ context.Context, ids []string, qtys []int64) (bool, error) {
	s.rec.add("check")
	s.ids, s.qtys = ids, qtys
	return s.available, nil
}

func (s *stock) DecrementStock(_ context.Context, _ []string, _ []int64) (bool, error) {
	s.rec.add("decrement")
	return s.decremented, s.decrementErr
}

type payments struct {
	rec        *recorder
	authorized bool
	cancelErr  error
	customerID string
	amount     decimal.Decimal
	cancelled  []string
}

func (p *payments) Authorize(_ context.Context, customerID string, amount decimal.Decimal) (payment.Authorization, error) {
	p.rec.add("authorize")
	p.customerID = customerID
	p.amount = amount
	if !p.authorized {
		return payment.Authorization{}, nil
	}
	return payment.Authorization{Authorized: true, TransactionID: "tx-1"}, nil
}

func (p *payments) Cancel(_ context.Context, customerID, transactionID string) error {
	p.rec.add("cancel")
	p.cancelled = append(p.cancelled, customerID+"/"+transactionID)
	return p.cancelErr
}

type capture struct {
	topics []string
}

func (c *capture) Notify(_ context.Context, ev events.Event) error {
	c.topics = append(c.topics, ev.Topic)
	return nil
}

type harness struct {
	svc      *checkout.Service
	rec      *recorder
	dir      *directory
	stock    *stock
	payments *payments
	events   *capture
	metrics  *obs.CheckoutMetrics
	logs     *bytes.Buffer
	spans    *tracetest.SpanRecorder
}

// newHarness wires a gold customer buying 10 electronics at 120.00 (total 816.00).
func newHarness(t *testing.T) *harness {
	t.Helper()
	rec := &recorder{}
	item := pricing.Product{
		ID:       "tv",
		Price:    pricing.Price("120.00"),
		Weight:   pricing.Dec("1.0"),
		Length:   pricing.Dec("10"),
		Width:    pricing.Dec("10"),
		Height:   pricing.Dec("10"),
		Category: pricing.CategoryElectronics,
	}
	h := &harness{
		rec: rec,
		dir: &directory{
			rec:      rec,
			customer: pricing.Customer{ID: "cust-1", Region: pricing.RegionSoutheast, Tier: pricing.TierGold},
			cart:     &pricing.Cart{ID: "cart-1", CustomerID: "cust-1", Items: []pricing.LineItem{{Product: item, Quantity: 10}}},
		},
		stock:    &stock{rec: rec, available: true, decremented: true},
		payments: &payments{rec: rec, authorized: true},
		events:   &capture{},
		metrics:  obs.NewCheckoutMetrics("test", nil, prometheus.NewRegistry()),
		logs:     &bytes.Buffer{},
		spans:    tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h.svc = &checkout.Service{
		Customers: h.dir,
		Carts:     h.dir,
		Inventory: h.stock,
		Payments:  h.payments,
		Events:    &events.Bus{Notifiers: []events.Notifier{h.events}},
		Metrics:   h.metrics,
		Logger:    zerolog.New(h.logs),
		Tracer:    tp.Tracer("checkout-test"),
	}
	return h
}

func (h *harness) attempts(result string) float64 {
	return testutil.ToFloat64(h.metrics.Attempts.WithLabelValues(result))
}

func TestCheckoutCompletes(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "tx-1", res.TransactionID)
	require.Equal(t, "816.00", res.Total.StringFixed(2))
	require.Equal(t, checkout.SuccessMessage, res.Message)

	require.Equal(t, []string{"customer:cust-1", "cart:cart-1", "check", "authorize", "decrement"}, h.rec.calls)
	require.Equal(t, "cust-1", h.payments.customerID)
	require.Equal(t, "816.00", h.payments.amount.StringFixed(2))
	require.Equal(t, []string{"tv"}, h.stock.ids)
	require.Equal(t, []int64{10}, h.stock.qtys)
	require.Equal(t, []string{events.TopicCheckoutCompleted}, h.events.topics)
	require.Equal(t, 1.0, h.attempts(obs.ResultCompleted))
	require.Contains(t, h.logs.String(), "checkout_completed")

	names := make([]string, 0)
	for _, span := range h.spans.Ended() {
		names = append(names, span.Name())
	}
	require.ElementsMatch(t, []string{
		"checkout.Checkout",
		"inventory.CheckAvailability",
		"payment.Authorize",
		"inventory.DecrementStock",
	}, names)
}

func TestCheckoutOutOfStockSkipsPayment(t *testing.T) {
	h := newHarness(t)
	h.stock.available = false

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrOutOfStock)
	require.Equal(t, "items out of stock", err.Error())
	require.NotContains(t, h.rec.calls, "authorize")
	require.Equal(t, 1.0, h.attempts(obs.ResultOutOfStock))
	require.Contains(t, h.logs.String(), "checkout_rejected")
}

func TestCheckoutDeclinedSkipsDecrement(t *testing.T) {
	h := newHarness(t)
	h.payments.authorized = false

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrPaymentDeclined)
	require.Equal(t, "payment_declined", common.CodeOf(err))
	require.NotContains(t, h.rec.calls, "decrement")
	require.Empty(t, h.payments.cancelled)
	require.Empty(t, h.events.topics)
}

func TestCheckoutCompensatesFailedDecrement(t *testing.T) {
	h := newHarness(t)
	h.stock.decremented = false

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrStockDecrementFailed)
	require.Equal(t, "failed to decrement stock", err.Error())
	require.Equal(t, []string{"customer:cust-1", "cart:cart-1", "check", "authorize", "decrement", "cancel"}, h.rec.calls)
	require.Equal(t, []string{"cust-1/tx-1"}, h.payments.cancelled)
	require.Equal(t, []string{events.TopicCheckoutPaymentCompensated}, h.events.topics)
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Compensations.WithLabelValues("ok")))
	require.Contains(t, h.logs.String(), "payment_compensated")
}

func TestCheckoutDecrementErrorCompensates(t *testing.T) {
	h := newHarness(t)
	h.stock.decrementErr = errors.New("redis down")

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrStockDecrementFailed)
	require.ErrorContains(t, err, "redis down")
	require.Equal(t, []string{"cust-1/tx-1"}, h.payments.cancelled)
}

func TestCheckoutCancelFailureIsJoined(t *testing.T) {
	h := newHarness(t)
	h.stock.decremented = false
	cancelErr := errors.New("gateway unavailable")
	h.payments.cancelErr = cancelErr

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrStockDecrementFailed)
	require.ErrorIs(t, err, cancelErr)
	require.Equal(t, "stock_decrement_failed", common.CodeOf(err))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Compensations.WithLabelValues("failed")))
	require.Contains(t, h.logs.String(), "payment_compensation_failed")
	require.Empty(t, h.events.topics)
}

func TestCheckoutStockCheckedBeforeValidation(t *testing.T) {
	h := newHarness(t)
	h.dir.cart.Items[0].Quantity = 0
	h.stock.available = false

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrOutOfStock)
	require.Equal(t, []string{"customer:cust-1", "cart:cart-1", "check"}, h.rec.calls)
	require.Equal(t, []int64{0}, h.stock.qtys)
}

func TestCheckoutValidationAbortsBeforePayment(t *testing.T) {
	h := newHarness(t)
	h.dir.cart.Items[0].Quantity = 0

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, pricing.ErrInvalidQuantity)
	require.Equal(t, []string{"customer:cust-1", "cart:cart-1", "check"}, h.rec.calls)
	require.Equal(t, 1.0, h.attempts(obs.ResultInvalid))
}

func TestCheckoutMissingCartSkipsInventory(t *testing.T) {
	h := newHarness(t)
	h.dir.cart = nil

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, pricing.ErrInvalidCart)
	require.Equal(t, []string{"customer:cust-1", "cart:cart-1"}, h.rec.calls)
}

func TestCheckoutPassesProductIDsUnchanged(t *testing.T) {
	h := newHarness(t)
	h.dir.cart.Items[0].Product.ID = " tv "

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.NoError(t, err)
	require.Equal(t, []string{" tv "}, h.stock.ids)
}

func TestCheckoutMissingParty(t *testing.T) {
	h := newHarness(t)
	h.dir.customer.Tier = ""

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, pricing.ErrInvalidParty)
	require.NotContains(t, h.rec.calls, "authorize")
}

func TestCheckoutLookupErrorPropagates(t *testing.T) {
	h := newHarness(t)
	lookupErr := errors.New("customer not found")
	h.dir.err = lookupErr

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, lookupErr)
	require.Equal(t, []string{"customer:cust-1"}, h.rec.calls)
	require.Equal(t, 1.0, h.attempts(obs.ResultError))
}

func TestCheckoutWithSandboxProvider(t *testing.T) {
	h := newHarness(t)
	limit := decimal.RequireFromString("500")
	sandbox := &payment.Sandbox{DeclineAbove: &limit}
	h.svc.Payments = sandbox

	_, err := h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrPaymentDeclined)

	sandbox.DeclineAbove = nil
	h.stock.decremented = false
	_, err = h.svc.Checkout(context.Background(), "cart-1", "cust-1")
	require.ErrorIs(t, err, checkout.ErrStockDecrementFailed)
	require.Len(t, sandbox.Cancelled(), 1)
}

func TestCheckoutRequiresCollaborators(t *testing.T) {
	_, err := (&checkout.Service{}).Checkout(context.Background(), "cart-1", "cust-1")
	require.Error(t, err)
}
