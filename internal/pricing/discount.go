package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	typeRateLow  = Dec("0.05")
	typeRateMid  = Dec("0.10")
	typeRateHigh = Dec("0.15")

	valueThresholdLow  = Dec("500.00")
	valueThresholdHigh = Dec("1000.00")
	valueRateLow       = Dec("0.10")
	valueRateHigh      = Dec("0.20")
)

type categoryTotals struct {
	quantity int64
	subtotal decimal.Decimal
}

// TypeDiscount returns the combined discount earned by categories with at
// least three units in the cart. Each category is discounted on its own subtotal.
func TypeDiscount(items []LineItem) decimal.Decimal {
	byCategory := make(map[Category]*categoryTotals)
	for _, item := range items {
		totals, ok := byCategory[item.Product.Category]
		if !ok {
			totals = &categoryTotals{}
			byCategory[item.Product.Category] = totals
		}
		totals.quantity = addQuantity(totals.quantity, item.Quantity)
		totals.subtotal = totals.subtotal.Add(lineTotal(item))
	}

	discount := decimal.Zero
	for _, totals := range byCategory {
		rate := TypeDiscountRate(totals.quantity)
		if rate.IsZero() {
			continue
		}
		discount = discount.Add(totals.subtotal.Mul(rate))
	}
	return discount
}

// addQuantity sums quantities, saturating at math.MaxInt64.
func addQuantity(total, quantity int64) int64 {
	if quantity > 0 && total > math.MaxInt64-quantity {
		return math.MaxInt64
	}
	return total + quantity
}

// TypeDiscountRate maps the total quantity of one category to its discount rate.
func TypeDiscountRate(quantity int64) decimal.Decimal {
	switch {
	case quantity >= 8:
		return typeRateHigh
	case quantity >= 5:
		return typeRateMid
	case quantity >= 3:
		return typeRateLow
	default:
		return decimal.Zero
	}
}

// ValueDiscount returns the discount earned by the amount itself. Thresholds
// are exclusive: exactly 500.00 or 1000.00 stays in the lower tier.
func ValueDiscount(amount decimal.Decimal) decimal.Decimal {
	switch {
	case amount.GreaterThan(valueThresholdHigh):
		return amount.Mul(valueRateHigh)
	case amount.GreaterThan(valueThresholdLow):
		return amount.Mul(valueRateLow)
	default:
		return decimal.Zero
	}
}
