package pricing

import "math"

const (
	// BandFloorRatio is the lower safety bound relative to the base price.
	BandFloorRatio = 0.7
	// BandCeilRatio is the upper safety bound relative to the base price.
	BandCeilRatio = 1.5
)

// ApplyAdjustments runs the price-adjustment pipeline: starting from base,
// each rule transforms the running price in order. A rule flagged
// stop_on_match terminates the loop after applying. The running price is
// floored at zero between stages. Rules carrying an unrecognised operation
// are skipped.
func ApplyAdjustments(base float64, rules []Rule) float64 {
	price := base
	for _, rule := range rules {
		adj := rule.Adjustment
		switch adj.Op {
		case OpFixedDiscount:
			price -= adj.Amount
		case OpFixedMarkup:
			price += adj.Amount
		case OpPercentageDiscount:
			price *= 1 - adj.Percent/100
		case OpPercentageMarkup:
			price *= 1 + adj.Percent/100
		case OpSetPrice:
			price = adj.Price
		default:
			continue
		}
		price = math.Max(0, price)
		if adj.StopOnMatch {
			break
		}
	}
	return math.Max(0, price)
}

// ApplyModifiers runs the optional multiplicative stages after rule
// adjustments. Factors of zero or below are skipped.
func ApplyModifiers(price float64, modifiers []Modifier) float64 {
	for _, m := range modifiers {
		if m.Factor <= 0 {
			continue
		}
		price *= m.Factor
	}
	return price
}

// ClampToBand restricts a candidate price to the safety band around the base
// price, [0.7*base, 1.5*base]. Applied as the final step for every seller
// regardless of which path produced the candidate.
func ClampToBand(base, candidate float64) float64 {
	return math.Max(BandFloorRatio*base, math.Min(BandCeilRatio*base, candidate))
}
