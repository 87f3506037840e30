package pricing

import "github.com/shopspring/decimal"

// Category groups products for quantity discounts.
type Category string

const (
	CategoryClothing    Category = "CLOTHING"
	CategoryBook        Category = "BOOK"
	CategoryFurniture   Category = "FURNITURE"
	CategoryFood        Category = "FOOD"
	CategoryElectronics Category = "ELECTRONICS"
)

// Region identifies the delivery region of a customer. The empty value means
// the region is unknown to the caller and fails validation.
type Region string

const (
	RegionSoutheast  Region = "SOUTHEAST"
	RegionSouth      Region = "SOUTH"
	RegionNortheast  Region = "NORTHEAST"
	RegionCenterWest Region = "CENTER_WEST"
	RegionNorth      Region = "NORTH"
)

// Tier is the loyalty level of a customer, ordered Bronze < Silver < Gold.
type Tier string

const (
	TierBronze Tier = "BRONZE"
	TierSilver Tier = "SILVER"
	TierGold   Tier = "GOLD"
)

// Product is an immutable catalog entry. Dimensions are centimetres and weight is kilograms.
type Product struct {
	ID       string
	Name     string
	Price    *decimal.Decimal
	Weight   decimal.Decimal
	Length   decimal.Decimal
	Width    decimal.Decimal
	Height   decimal.Decimal
	Fragile  bool
	Category Category
}

// LineItem is a product and the quantity ordered.
type LineItem struct {
	Product  Product
	Quantity int64
}

// Cart is the ordered list of items owned by a customer.
type Cart struct {
	ID         string
	CustomerID string
	Items      []LineItem
}

// Customer carries the attributes that drive shipping pricing.
type Customer struct {
	ID     string
	Name   string
	Region Region
	Tier   Tier
}

// Breakdown exposes the value produced by every stage of the calculation.
type Breakdown struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	TypeDiscount      decimal.Decimal `json:"typeDiscount"`
	AfterTypeDiscount decimal.Decimal `json:"afterTypeDiscount"`
	ValueDiscount     decimal.Decimal `json:"valueDiscount"`
	Merchandise       decimal.Decimal `json:"merchandise"`
	TaxableWeight     decimal.Decimal `json:"taxableWeight"`
	WeightBand        WeightBand      `json:"weightBand"`
	ShippingBase      decimal.Decimal `json:"shippingBase"`
	ShippingRebate    decimal.Decimal `json:"shippingRebate"`
	Shipping          decimal.Decimal `json:"shipping"`
	Total             decimal.Decimal `json:"total"`
}

// Dec parses a decimal literal and panics on malformed input. Intended for
// constants and fixtures.
func Dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// Price returns a pointer suitable for Product.Price.
func Price(value string) *decimal.Decimal {
	d := Dec(value)
	return &d
}
