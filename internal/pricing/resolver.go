package pricing

import (
	"fmt"

	"github.com/shelfmart/shelfmart/internal/sellers"
)

// CandidatePrice resolves the pre-clamp price for one seller. Rule-driven
// sellers take the pipeline output. Override sellers take their recorded
// override when one exists and fall back to the pipeline otherwise, so an
// override seller without an override behaves exactly like a rule-driven one.
func CandidatePrice(tier sellers.PricingTier, override *float64, base float64, rules []Rule, modifiers []Modifier) (float64, error) {
	switch tier {
	case sellers.TierRuleDriven:
		return ApplyModifiers(ApplyAdjustments(base, rules), modifiers), nil
	case sellers.TierSellerOverride:
		if override != nil {
			return *override, nil
		}
		return ApplyModifiers(ApplyAdjustments(base, rules), modifiers), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSellerTier, tier)
	}
}
