package sellers

import (
	"errors"
	"time"
)

// PricingTier governs whether a seller's price is rule-derived or
// operator-supplied.
type PricingTier string

const (
	// TierRuleDriven sellers take the output of the rule pipeline.
	TierRuleDriven PricingTier = "rule_driven"
	// TierSellerOverride sellers use their recorded override price when one
	// exists and fall back to the rule pipeline otherwise.
	TierSellerOverride PricingTier = "seller_override"
)

// Seller is the onboarded virtual seller read model.
type Seller struct {
	ID          string
	DisplayName string
	Tier        PricingTier
	IsActive    bool
	CreatedAt   time.Time
}

// ErrSellerNotFound indicates the requested seller does not exist.
var ErrSellerNotFound = errors.New("sellers: seller not found")
