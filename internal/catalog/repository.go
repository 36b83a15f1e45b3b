package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads products from PostgreSQL.
type Repository interface {
	Get(ctx context.Context, id string) (Product, error)
	ListActiveAfter(ctx context.Context, afterID string, limit int) ([]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, category_id, COALESCE(isbn, ''), price, stock, COALESCE(tag_ids, '[]'::jsonb), COALESCE(attributes, '{}'::jsonb), is_active, created_at, updated_at
FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return product, nil
}

// ListActiveAfter pages active products using keyset pagination on id, so a
// full-catalog sweep never holds one long cursor across the whole table. The
// cursor compares ids as text: the first page passes an empty afterID, which
// a uuid-typed comparison would reject.
func (r *repository) ListActiveAfter(ctx context.Context, afterID string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, category_id, COALESCE(isbn, ''), price, stock, COALESCE(tag_ids, '[]'::jsonb), COALESCE(attributes, '{}'::jsonb), is_active, created_at, updated_at
FROM products
WHERE is_active = TRUE AND id::text > $1
ORDER BY id::text ASC
LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		tags  []byte
		attrs []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.ISBN, &p.Price, &p.Stock, &tags, &attrs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &p.TagIDs)
	}
	if len(attrs) > 0 {
		_ = json.Unmarshal(attrs, &p.Attributes)
	}
	return p, nil
}
