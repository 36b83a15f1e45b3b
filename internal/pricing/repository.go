package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UpsertInput carries one seller's recompute result into storage.
type UpsertInput struct {
	SellerID        string
	ProductID       string
	BasePrice       float64
	CalculatedPrice float64
	// DefaultStock seeds the stock column when the row is created on first
	// contact. Existing rows keep their stock untouched.
	DefaultStock int
}

// InventoryRepository persists per-seller inventory rows.
type InventoryRepository interface {
	GetOverridePrice(ctx context.Context, sellerID, productID string) (*float64, error)
	UpsertCalculated(ctx context.Context, input UpsertInput) error
	Summary(ctx context.Context) ([]SellerSummary, error)
}

type inventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository constructs an InventoryRepository backed by PostgreSQL.
func NewInventoryRepository(pool *pgxpool.Pool) InventoryRepository {
	return &inventoryRepository{pool: pool}
}

// GetOverridePrice returns the seller's recorded override price for the
// product, or nil when no row or no override exists.
func (r *inventoryRepository) GetOverridePrice(ctx context.Context, sellerID, productID string) (*float64, error) {
	var sellerPrice *float64
	err := r.pool.QueryRow(ctx, `SELECT seller_price FROM seller_inventory WHERE seller_id = $1 AND product_id = $2`, sellerID, productID).Scan(&sellerPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sellerPrice, nil
}

// UpsertCalculated writes the recompute result in a single atomic statement
// keyed on the unique (seller_id, product_id) constraint. Concurrent
// recomputes of the same pair cannot produce duplicate rows. On insert all
// three price fields are seeded; on update only calculated_price moves and a
// missing seller_price is backfilled.
func (r *inventoryRepository) UpsertCalculated(ctx context.Context, input UpsertInput) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO seller_inventory (id, seller_id, product_id, stock, reserved_stock, base_price, seller_price, calculated_price, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $5, $6, $6, NOW(), NOW())
ON CONFLICT (seller_id, product_id) DO UPDATE SET
	calculated_price = EXCLUDED.calculated_price,
	seller_price = COALESCE(seller_inventory.seller_price, EXCLUDED.seller_price),
	updated_at = NOW()`,
		uuid.NewString(), input.SellerID, input.ProductID, input.DefaultStock, input.BasePrice, input.CalculatedPrice)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("%w: seller %s product %s: %s", ErrInventoryWrite, input.SellerID, input.ProductID, pgErr.Message)
		}
		return fmt.Errorf("%w: %v", ErrInventoryWrite, err)
	}
	return nil
}

// Summary aggregates inventory per active seller for reporting. Sellers with
// no inventory yet appear with zero counts via the left join.
func (r *inventoryRepository) Summary(ctx context.Context) ([]SellerSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.display_name, s.pricing_tier,
	COUNT(si.id)::int,
	COALESCE(AVG(si.calculated_price), 0),
	COALESCE(MIN(si.calculated_price), 0),
	COALESCE(MAX(si.calculated_price), 0)
FROM sellers s
LEFT JOIN seller_inventory si ON si.seller_id = s.id
WHERE s.is_active = TRUE
GROUP BY s.id, s.display_name, s.pricing_tier
ORDER BY s.display_name ASC, s.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SellerSummary
	for rows.Next() {
		var summary SellerSummary
		if err := rows.Scan(&summary.SellerID, &summary.SellerName, &summary.Tier, &summary.TotalProducts, &summary.AvgPrice, &summary.MinPrice, &summary.MaxPrice); err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
