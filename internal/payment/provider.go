package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Authorization is the outcome of an authorization request.
type Authorization struct {
	Authorized    bool
	TransactionID string
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	Authorize(ctx context.Context, customerID string, amount decimal.Decimal) (Authorization, error)
	Cancel(ctx context.Context, customerID, transactionID string) error
}
