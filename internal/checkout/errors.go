package checkout

import "github.com/noah-isme/checkout-cost/internal/common"

var (
	ErrOutOfStock           = common.NewAppError("out_of_stock", "items out of stock", nil)
	ErrPaymentDeclined      = common.NewAppError("payment_declined", "payment not authorized", nil)
	ErrStockDecrementFailed = common.NewAppError("stock_decrement_failed", "failed to decrement stock", nil)
)
