package pricing

import "github.com/noah-isme/checkout-cost/internal/common"

var (
	// ErrInvalidCart is returned when the cart or its item list is missing.
	ErrInvalidCart = common.NewAppError("invalid_cart", "cart is empty or was not found", nil)
	// ErrInvalidParty is returned when the region or customer tier is missing.
	ErrInvalidParty = common.NewAppError("invalid_party", "region or customer tier not identified", nil)
	// ErrInvalidQuantity is returned when an item quantity is not positive.
	ErrInvalidQuantity = common.NewAppError("invalid_quantity", "item quantity must be greater than zero", nil)
	// ErrInvalidPrice is returned when a product price is missing or negative.
	ErrInvalidPrice = common.NewAppError("invalid_price", "product price must be zero or greater", nil)
)

// ItemDetails identifies the offending line item of an item-level validation error.
type ItemDetails struct {
	Index     int    `json:"index"`
	ProductID string `json:"productId"`
}

func itemError(base *common.AppError, index int, item LineItem) error {
	return base.WithDetails(ItemDetails{Index: index, ProductID: item.Product.ID})
}
