package pricing

import (
	"regexp"

	"github.com/shelfmart/shelfmart/internal/catalog"
)

// Applies reports whether the rule matches the product. All present
// predicates must hold. A malformed identifier pattern fails closed: the rule
// simply never matches, it does not abort evaluation.
func (r Rule) Applies(product catalog.Product) bool {
	if r.CategoryID != nil && *r.CategoryID != product.CategoryID {
		return false
	}
	return r.Conditions.Matches(product)
}

// Matches evaluates the condition set against the product. No side effects.
func (c ConditionSet) Matches(product catalog.Product) bool {
	if c.IdentifierPattern != "" {
		pattern, err := regexp.Compile(c.IdentifierPattern)
		if err != nil {
			// A malformed pattern never matches, even when the product has no
			// identifier to test against.
			return false
		}
		// A valid pattern is skipped for products without an identifier.
		if product.ISBN != "" && !pattern.MatchString(product.ISBN) {
			return false
		}
	}
	if c.PriceRange != nil {
		if product.Price < c.PriceRange.Min || product.Price > c.PriceRange.Max {
			return false
		}
	}
	if c.StockThreshold != nil && product.Stock < *c.StockThreshold {
		return false
	}
	if len(c.Tags) > 0 {
		if len(product.TagIDs) == 0 {
			return false
		}
		productTags := make(map[string]struct{}, len(product.TagIDs))
		for _, tag := range product.TagIDs {
			productTags[tag] = struct{}{}
		}
		matched := false
		for _, tag := range c.Tags {
			if _, ok := productTags[tag]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
