package pricing

import "github.com/shopspring/decimal"

// WeightBand is the shipping rate bracket selected by total taxable weight.
type WeightBand string

const (
	BandWaived WeightBand = "WAIVED"
	BandLight  WeightBand = "LIGHT"
	BandMedium WeightBand = "MEDIUM"
	BandHeavy  WeightBand = "HEAVY"
)

var (
	volumetricFactor = decimal.NewFromInt(6000)

	waivedMaxWeight = Dec("5.00")
	lightMaxWeight  = Dec("10.00")
	mediumMaxWeight = Dec("50.00")

	lightRatePerKg  = Dec("2.00")
	mediumRatePerKg = Dec("4.00")
	heavyRatePerKg  = Dec("7.00")

	minimumShippingFee = Dec("12.00")
	fragileSurcharge   = Dec("5.00")

	silverShippingShare = Dec("0.50")
)

var regionMultipliers = map[Region]decimal.Decimal{
	RegionSoutheast:  Dec("1.00"),
	RegionSouth:      Dec("1.05"),
	RegionNortheast:  Dec("1.10"),
	RegionCenterWest: Dec("1.20"),
	RegionNorth:      Dec("1.30"),
}

// CubicWeight is the volumetric weight of one unit, rounded to two places half-up.
func CubicWeight(p Product) decimal.Decimal {
	volume := p.Length.Mul(p.Width).Mul(p.Height)
	return volume.DivRound(volumetricFactor, 2)
}

// UnitTaxableWeight is the greater of physical and cubic weight for one unit.
func UnitTaxableWeight(p Product) decimal.Decimal {
	return decimal.Max(p.Weight, CubicWeight(p))
}

// TaxableWeight sums the taxable weight of every unit in the cart.
func TaxableWeight(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(UnitTaxableWeight(item.Product).Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

// BandFor selects the rate band. Upper bounds are inclusive.
func BandFor(weight decimal.Decimal) WeightBand {
	switch {
	case weight.LessThanOrEqual(waivedMaxWeight):
		return BandWaived
	case weight.LessThanOrEqual(lightMaxWeight):
		return BandLight
	case weight.LessThanOrEqual(mediumMaxWeight):
		return BandMedium
	default:
		return BandHeavy
	}
}

// RatePerKg returns the per-kilogram charge of the band.
func (b WeightBand) RatePerKg() decimal.Decimal {
	switch b {
	case BandLight:
		return lightRatePerKg
	case BandMedium:
		return mediumRatePerKg
	case BandHeavy:
		return heavyRatePerKg
	default:
		return decimal.Zero
	}
}

// RegionMultiplier returns the shipping multiplier of the region; unknown regions pay 1.00.
func RegionMultiplier(region Region) decimal.Decimal {
	if m, ok := regionMultipliers[region]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// ShippingBase computes shipping before the tier rebate.
func ShippingBase(items []LineItem, region Region) decimal.Decimal {
	return shippingFor(items, TaxableWeight(items), region)
}

func shippingFor(items []LineItem, weight decimal.Decimal, region Region) decimal.Decimal {
	band := BandFor(weight)
	shipping := decimal.Zero
	if band != BandWaived {
		shipping = weight.Mul(band.RatePerKg()).Add(minimumShippingFee)
	}
	for _, item := range items {
		if item.Product.Fragile {
			shipping = shipping.Add(fragileSurcharge.Mul(decimal.NewFromInt(item.Quantity)))
		}
	}
	return shipping.Mul(RegionMultiplier(region))
}

// ApplyTierRebate returns the shipping charge left after the customer's tier rebate.
func ApplyTierRebate(shipping decimal.Decimal, tier Tier) decimal.Decimal {
	switch tier {
	case TierGold:
		return decimal.Zero
	case TierSilver:
		return shipping.Mul(silverShippingShare)
	default:
		return shipping
	}
}
