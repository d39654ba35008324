package seating

// Surcharges are added to a show's base price, in the same minor unit.
const (
	PremiumSurcharge int64 = 100
	VIPSurcharge     int64 = 200
)

// Price returns the price of one seat of tier t for a show with the given
// base price.
func Price(base int64, t Tier) int64 {
	switch t {
	case Premium:
		return base + PremiumSurcharge
	case VIP:
		return base + VIPSurcharge
	default:
		return base
	}
}

// Total sums Price over seats.
func Total(base int64, seats []Seat) int64 {
	var total int64
	for _, s := range seats {
		total += Price(base, s.Tier)
	}
	return total
}

// PriceTable returns the per-tier prices for a base price, keyed by tier
// name.
func PriceTable(base int64) map[string]int64 {
	return map[string]int64{
		Standard.String(): Price(base, Standard),
		Premium.String():  Price(base, Premium),
		VIP.String():      Price(base, VIP),
	}
}
