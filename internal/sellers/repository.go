package sellers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads sellers from PostgreSQL.
type Repository interface {
	Get(ctx context.Context, id string) (Seller, error)
	ListActive(ctx context.Context) ([]Seller, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id string) (Seller, error) {
	var s Seller
	err := r.pool.QueryRow(ctx, `SELECT id, display_name, pricing_tier, is_active, created_at
FROM sellers WHERE id = $1`, id).Scan(&s.ID, &s.DisplayName, &s.Tier, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Seller{}, ErrSellerNotFound
		}
		return Seller{}, err
	}
	return s, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Seller, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, display_name, pricing_tier, is_active, created_at
FROM sellers WHERE is_active = TRUE ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Seller
	for rows.Next() {
		var s Seller
		if err := rows.Scan(&s.ID, &s.DisplayName, &s.Tier, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
