package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/checkout-cost/internal/events"
	"github.com/noah-isme/checkout-cost/internal/obs"
	"github.com/noah-isme/checkout-cost/internal/payment"
	"github.com/noah-isme/checkout-cost/internal/pricing"
)

// SuccessMessage accompanies every completed checkout.
const SuccessMessage = "purchase completed successfully"

const tracerName = "github.com/noah-isme/checkout-cost/internal/checkout"

// Result describes a completed checkout.
type Result struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transactionId"`
	Total         decimal.Decimal `json:"total"`
	Message       string          `json:"message"`
}

// Service runs the checkout workflow against its collaborators. Steps run
// strictly in sequence and nothing is retried.
type Service struct {
	Customers CustomerLookup
	Carts     CartLookup
	Inventory Inventory
	Payments  payment.Provider
	Events    *events.Bus
	Metrics   *obs.CheckoutMetrics
	Logger    zerolog.Logger
	Tracer    trace.Tracer
}

// Checkout prices the cart, authorizes payment and reserves stock. When the
// stock decrement fails after authorization the payment is cancelled.
func (s *Service) Checkout(ctx context.Context, cartID, customerID string) (Result, error) {
	if s == nil || s.Customers == nil || s.Carts == nil || s.Inventory == nil || s.Payments == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	ctx, span := s.tracer().Start(ctx, "checkout.Checkout", trace.WithAttributes(
		attribute.String("checkout.cart_id", cartID),
		attribute.String("checkout.customer_id", customerID),
	))
	defer span.End()

	logger := obs.WithTrace(ctx, s.Logger).With().
		Str("cart_id", cartID).
		Str("customer_id", customerID).
		Logger()

	res, result, err := s.run(ctx, logger, cartID, customerID)
	s.Metrics.ObserveAttempt(result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		logger.Warn().Err(err).Str("result", result).Msg("checkout_rejected")
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("checkout.transaction_id", res.TransactionID),
		attribute.String("checkout.total", res.Total.StringFixed(2)),
	)
	logger.Info().
		Str("transaction_id", res.TransactionID).
		Str("total", res.Total.StringFixed(2)).
		Msg("checkout_completed")
	return res, nil
}

func (s *Service) run(ctx context.Context, logger zerolog.Logger, cartID, customerID string) (Result, string, error) {
	customer, err := s.Customers.Customer(ctx, customerID)
	if err != nil {
		return Result{}, obs.ResultError, fmt.Errorf("checkout: lookup customer: %w", err)
	}
	cart, err := s.Carts.Cart(ctx, cartID, customerID)
	if err != nil {
		return Result{}, obs.ResultError, fmt.Errorf("checkout: lookup cart: %w", err)
	}
	if cart == nil || cart.Items == nil {
		return Result{}, obs.ResultInvalid, pricing.ErrInvalidCart
	}
	productIDs, quantities := lines(cart)

	available, err := s.checkStock(ctx, productIDs, quantities)
	if err != nil {
		return Result{}, obs.ResultError, fmt.Errorf("checkout: check availability: %w", err)
	}
	if !available {
		return Result{}, obs.ResultOutOfStock, ErrOutOfStock
	}

	total, err := pricing.Total(cart, customer.Region, customer.Tier)
	if err != nil {
		return Result{}, obs.ResultInvalid, err
	}

	auth, err := s.authorize(ctx, customerID, total)
	if err != nil {
		return Result{}, obs.ResultError, fmt.Errorf("checkout: authorize payment: %w", err)
	}
	if !auth.Authorized {
		return Result{}, obs.ResultDeclined, ErrPaymentDeclined
	}

	decremented, decErr := s.decrementStock(ctx, productIDs, quantities)
	if decErr != nil || !decremented {
		failure := error(ErrStockDecrementFailed)
		if decErr != nil {
			failure = ErrStockDecrementFailed.Wrap(decErr)
		}
		if cancelErr := s.compensate(ctx, logger, cartID, customerID, auth.TransactionID); cancelErr != nil {
			failure = errors.Join(failure, cancelErr)
		}
		return Result{}, obs.ResultStockFailure, failure
	}

	s.Metrics.ObserveAmount(string(customer.Tier), total.InexactFloat64())
	s.emit(ctx, logger, events.TopicCheckoutCompleted, cartID, map[string]string{
		"cart_id":        cartID,
		"customer_id":    customerID,
		"transaction_id": auth.TransactionID,
		"total":          total.StringFixed(2),
	})
	return Result{
		Success:       true,
		TransactionID: auth.TransactionID,
		Total:         total,
		Message:       SuccessMessage,
	}, obs.ResultCompleted, nil
}

func (s *Service) checkStock(ctx context.Context, productIDs []string, quantities []int64) (bool, error) {
	ctx, span := s.tracer().Start(ctx, "inventory.CheckAvailability")
	defer span.End()
	ok, err := s.Inventory.CheckAvailability(ctx, productIDs, quantities)
	endSpan(span, err)
	span.SetAttributes(attribute.Bool("inventory.available", ok))
	return ok, err
}

func (s *Service) authorize(ctx context.Context, customerID string, total decimal.Decimal) (payment.Authorization, error) {
	ctx, span := s.tracer().Start(ctx, "payment.Authorize", trace.WithAttributes(
		attribute.String("payment.amount", total.StringFixed(2)),
	))
	defer span.End()
	auth, err := s.Payments.Authorize(ctx, customerID, total)
	endSpan(span, err)
	span.SetAttributes(attribute.Bool("payment.authorized", auth.Authorized))
	return auth, err
}

func (s *Service) decrementStock(ctx context.Context, productIDs []string, quantities []int64) (bool, error) {
	ctx, span := s.tracer().Start(ctx, "inventory.DecrementStock")
	defer span.End()
	ok, err := s.Inventory.DecrementStock(ctx, productIDs, quantities)
	endSpan(span, err)
	span.SetAttributes(attribute.Bool("inventory.decremented", ok))
	return ok, err
}

// compensate cancels the authorization. Its error is reported to the caller
// alongside the stock failure.
func (s *Service) compensate(ctx context.Context, logger zerolog.Logger, cartID, customerID, transactionID string) error {
	ctx, span := s.tracer().Start(ctx, "payment.Cancel", trace.WithAttributes(
		attribute.String("payment.transaction_id", transactionID),
	))
	defer span.End()

	err := s.Payments.Cancel(ctx, customerID, transactionID)
	endSpan(span, err)
	s.Metrics.ObserveCompensation(err == nil)
	if err != nil {
		logger.Error().Err(err).Str("transaction_id", transactionID).Msg("payment_compensation_failed")
		return fmt.Errorf("checkout: cancel payment %s: %w", transactionID, err)
	}
	logger.Info().Str("transaction_id", transactionID).Msg("payment_compensated")
	s.emit(ctx, logger, events.TopicCheckoutPaymentCompensated, cartID, map[string]string{
		"cart_id":        cartID,
		"customer_id":    customerID,
		"transaction_id": transactionID,
	})
	return nil
}

func (s *Service) emit(ctx context.Context, logger zerolog.Logger, topic, aggregateID string, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}

func (s *Service) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer(tracerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func lines(cart *pricing.Cart) ([]string, []int64) {
	ids := make([]string, 0, len(cart.Items))
	qtys := make([]int64, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.Product.ID)
		qtys = append(qtys, item.Quantity)
	}
	return ids, qtys
}
