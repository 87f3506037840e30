package obs

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout results recorded on the attempts counter.
const (
	ResultCompleted    = "completed"
	ResultInvalid      = "invalid"
	ResultOutOfStock   = "out_of_stock"
	ResultDeclined     = "declined"
	ResultStockFailure = "stock_decrement_failed"
	ResultError        = "error"
)

// CheckoutMetrics groups Prometheus collectors for checkout runs.
// A nil *CheckoutMetrics records nothing.
type CheckoutMetrics struct {
	Attempts      *prometheus.CounterVec
	Amount        *prometheus.HistogramVec
	Compensations *prometheus.CounterVec
}

// NewCheckoutMetrics registers and returns checkout collectors. Collectors
// already registered under the same name are reused.
func NewCheckoutMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000}
	}
	m := &CheckoutMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_attempts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		Amount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_amount",
			Help:      "Charged totals of completed checkouts by customer tier.",
			Buckets:   buckets,
		}, []string{"tier"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_payment_compensations_total",
			Help:      "Payment cancellations issued after a failed stock decrement.",
		}, []string{"outcome"}),
	}
	mustRegisterCounter(reg, &m.Attempts)
	mustRegisterHistogram(reg, &m.Amount)
	mustRegisterCounter(reg, &m.Compensations)
	return m
}

// ObserveAttempt counts one checkout outcome.
func (m *CheckoutMetrics) ObserveAttempt(result string) {
	if m == nil || m.Attempts == nil {
		return
	}
	m.Attempts.WithLabelValues(result).Inc()
}

// ObserveAmount records the total charged for a completed checkout.
func (m *CheckoutMetrics) ObserveAmount(tier string, amount float64) {
	if m == nil || m.Amount == nil {
		return
	}
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier == "" {
		tier = "unknown"
	}
	m.Amount.WithLabelValues(tier).Observe(amount)
}

// ObserveCompensation counts a payment cancellation and whether it succeeded.
func (m *CheckoutMetrics) ObserveCompensation(ok bool) {
	if m == nil || m.Compensations == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.Compensations.WithLabelValues(outcome).Inc()
}

func mustRegisterCounter(reg prometheus.Registerer, counter **prometheus.CounterVec) {
	if err := reg.Register(*counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				*counter = existing
			}
			return
		}
		panic(fmt.Errorf("register counter: %w", err))
	}
}

func mustRegisterHistogram(reg prometheus.Registerer, histo **prometheus.HistogramVec) {
	if err := reg.Register(*histo); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				*histo = existing
			}
			return
		}
		panic(fmt.Errorf("register histogram: %w", err))
	}
}
