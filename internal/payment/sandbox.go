package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is a local provider for development runs. It authorizes any amount
// up to DeclineAbove (or every amount when the limit is nil) without a network call.
type Sandbox struct {
	DeclineAbove *decimal.Decimal

	mu        sync.Mutex
	cancelled []string
}

// Authorize issues a synthetic transaction id for accepted amounts.
func (s *Sandbox) Authorize(_ context.Context, customerID string, amount decimal.Decimal) (Authorization, error) {
	if strings.TrimSpace(customerID) == "" {
		return Authorization{}, errors.New("payment: customer id is required")
	}
	if s.DeclineAbove != nil && amount.GreaterThan(*s.DeclineAbove) {
		return Authorization{Authorized: false}, nil
	}
	return Authorization{Authorized: true, TransactionID: "SBX-" + uuid.NewString()}, nil
}

// Cancel records the cancelled transaction.
func (s *Sandbox) Cancel(_ context.Context, _ string, transactionID string) error {
	if strings.TrimSpace(transactionID) == "" {
		return errors.New("payment: transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, transactionID)
	return nil
}

// Cancelled returns the transaction ids cancelled so far.
func (s *Sandbox) Cancelled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}
