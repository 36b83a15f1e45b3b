package catalog

import (
	"errors"
	"time"
)

// Product is the catalog entity the pricing engine reads. The engine never
// writes products; catalog-management flows own them.
type Product struct {
	ID         string
	Name       string
	CategoryID string
	ISBN       string
	Price      float64
	Stock      int
	TagIDs     []string
	Attributes map[string]any
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("catalog: product not found")
