package pricing

import "github.com/shopspring/decimal"

// Total computes the amount due for the cart: discounted merchandise plus
// shipping after the tier rebate, rounded to cents half-up.
func Total(cart *Cart, region Region, tier Tier) (decimal.Decimal, error) {
	b, err := Quote(cart, region, tier)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Total, nil
}

// Quote runs every pricing stage in order and reports the intermediate values.
// Inputs are validated before any arithmetic and the first violation is returned.
func Quote(cart *Cart, region Region, tier Tier) (Breakdown, error) {
	if err := Validate(cart, region, tier); err != nil {
		return Breakdown{}, err
	}
	items := cart.Items

	var b Breakdown
	b.Subtotal = Subtotal(items)
	b.TypeDiscount = TypeDiscount(items)
	b.AfterTypeDiscount = b.Subtotal.Sub(b.TypeDiscount)
	b.ValueDiscount = ValueDiscount(b.AfterTypeDiscount)
	b.Merchandise = b.AfterTypeDiscount.Sub(b.ValueDiscount)

	b.TaxableWeight = TaxableWeight(items)
	b.WeightBand = BandFor(b.TaxableWeight)
	b.ShippingBase = shippingFor(items, b.TaxableWeight, region)
	b.Shipping = ApplyTierRebate(b.ShippingBase, tier)
	b.ShippingRebate = b.ShippingBase.Sub(b.Shipping)

	b.Total = b.Merchandise.Add(b.Shipping).Round(2)
	return b, nil
}

// Validate checks the calculation inputs in a fixed order: cart, parties, then
// each item's quantity and price.
func Validate(cart *Cart, region Region, tier Tier) error {
	if cart == nil || cart.Items == nil {
		return ErrInvalidCart
	}
	if region == "" || tier == "" {
		return ErrInvalidParty
	}
	for i, item := range cart.Items {
		if item.Quantity <= 0 {
			return itemError(ErrInvalidQuantity, i, item)
		}
		if item.Product.Price == nil || item.Product.Price.IsNegative() {
			return itemError(ErrInvalidPrice, i, item)
		}
	}
	return nil
}

// Subtotal sums price times quantity over all items without rounding.
func Subtotal(items []LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(lineTotal(item))
	}
	return subtotal
}

func lineTotal(item LineItem) decimal.Decimal {
	if item.Product.Price == nil {
		return decimal.Zero
	}
	return item.Product.Price.Mul(decimal.NewFromInt(item.Quantity))
}
