package checkout

import (
	"context"

	"github.com/noah-isme/checkout-cost/internal/pricing"
)

// CustomerLookup resolves the customer placing the order.
type CustomerLookup interface {
	Customer(ctx context.Context, customerID string) (pricing.Customer, error)
}

// CartLookup resolves a customer's cart.
type CartLookup interface {
	Cart(ctx context.Context, cartID, customerID string) (*pricing.Cart, error)
}

// Inventory checks and reserves stock. productIDs and quantities are parallel slices.
type Inventory interface {
	CheckAvailability(ctx context.Context, productIDs []string, quantities []int64) (bool, error)
	DecrementStock(ctx context.Context, productIDs []string, quantities []int64) (bool, error)
}
