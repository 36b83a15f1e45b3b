package pricing

import (
	"errors"
	"time"
)

// AdjustmentOp enumerates supported price adjustment operations.
type AdjustmentOp string

const (
	// OpFixedDiscount subtracts a fixed amount from the running price.
	OpFixedDiscount AdjustmentOp = "fixed_discount"
	// OpFixedMarkup adds a fixed amount to the running price.
	OpFixedMarkup AdjustmentOp = "fixed_markup"
	// OpPercentageDiscount reduces the running price by a percentage.
	OpPercentageDiscount AdjustmentOp = "percentage_discount"
	// OpPercentageMarkup raises the running price by a percentage.
	OpPercentageMarkup AdjustmentOp = "percentage_markup"
	// OpSetPrice replaces the running price outright.
	OpSetPrice AdjustmentOp = "set_price"
)

// Adjustment is the decoded price_adjustment payload of a rule.
type Adjustment struct {
	Op          AdjustmentOp `json:"type" validate:"required,oneof=fixed_discount fixed_markup percentage_discount percentage_markup set_price"`
	Amount      float64      `json:"amount,omitempty" validate:"gte=0"`
	Percent     float64      `json:"percentage,omitempty" validate:"gte=0"`
	Price       float64      `json:"price,omitempty" validate:"gte=0"`
	StopOnMatch bool         `json:"stop_on_match,omitempty"`
}

// PriceRange bounds a condition on the product's base price, inclusive.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max" validate:"gtefield=Min"`
}

// ConditionSet is the decoded conditions payload of a rule. Every present
// predicate must hold; an absent predicate is vacuously satisfied.
type ConditionSet struct {
	IdentifierPattern string      `json:"isbn_pattern,omitempty"`
	PriceRange        *PriceRange `json:"price_range,omitempty"`
	StockThreshold    *int        `json:"stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Tags              []string    `json:"tags,omitempty"`
}

// Rule is a configured, prioritized condition to price-adjustment mapping.
// Rules are operator configuration; the engine only reads them.
type Rule struct {
	ID         string
	Name       string
	CategoryID *string
	Conditions ConditionSet
	Adjustment Adjustment
	Priority   int
	IsActive   bool
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ActiveAt reports whether the rule is enabled and t falls inside its
// validity window. A nil bound is open-ended; bounds are inclusive, matching
// the repository filter.
func (r Rule) ActiveAt(t time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && t.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Modifier is an optional multiplicative pipeline stage applied after rule
// adjustments and before clamping. None ship today; seasonal or competitor
// factors plug in here.
type Modifier struct {
	Name   string
	Factor float64
}

// InventoryRow is the per-seller inventory record, the engine's only write
// target. SellerPrice is the operator-supplied override, nil when unset.
type InventoryRow struct {
	ID              string
	SellerID        string
	ProductID       string
	Stock           int
	ReservedStock   int
	BasePrice       float64
	SellerPrice     *float64
	CalculatedPrice float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SellerSummary aggregates a seller's inventory for reporting.
type SellerSummary struct {
	SellerID      string  `json:"seller_id"`
	SellerName    string  `json:"seller_name"`
	Tier          string  `json:"tier"`
	TotalProducts int     `json:"total_products"`
	AvgPrice      float64 `json:"avg_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
}

// SellerFailure records one seller's failed recompute inside a batch.
type SellerFailure struct {
	SellerID string `json:"seller_id"`
	Reason   string `json:"reason"`
}

// Report summarises one recompute batch across all active sellers.
type Report struct {
	ProductID string          `json:"product_id"`
	Succeeded int             `json:"succeeded"`
	Failures  []SellerFailure `json:"failures,omitempty"`
}

// Failed returns the number of sellers that failed in the batch.
func (r Report) Failed() int {
	return len(r.Failures)
}

var (
	// ErrUnknownSellerTier indicates a seller carries a tier value the engine
	// does not recognise. It fails that seller only, never the batch.
	ErrUnknownSellerTier = errors.New("pricing: unknown seller tier")
	// ErrInventoryWrite indicates the inventory upsert was rejected.
	ErrInventoryWrite = errors.New("pricing: inventory write failed")
)
