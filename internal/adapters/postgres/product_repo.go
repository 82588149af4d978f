package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// ProductRepo implements ports.ProductRepository with pgx.
type ProductRepo struct {
	db *DB
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(db *DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// UpsertBatch inserts many products using pgx.Batch, keyed by name and type.
func (r *ProductRepo) UpsertBatch(ctx context.Context, products []domain.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (name, product_type, description, price_per_unit, unit_type, stock_quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (name, product_type) DO UPDATE
			SET description = EXCLUDED.description, price_per_unit = EXCLUDED.price_per_unit,
			    unit_type = EXCLUDED.unit_type, stock_quantity = EXCLUDED.stock_quantity
		`, p.Name, p.Type, p.Description, p.Price, p.Unit, p.Stock)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range products {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// List returns products of productType ordered by name; "" returns all types.
func (r *ProductRepo) List(ctx context.Context, productType string) ([]domain.Product, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, name, product_type, COALESCE(description, ''),
		       price_per_unit::float8, unit_type, stock_quantity
		FROM products
		WHERE $1 = '' OR product_type = $1
		ORDER BY name, id
	`, productType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Description, &p.Price, &p.Unit, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
