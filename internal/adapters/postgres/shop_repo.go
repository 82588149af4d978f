package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paddymap/paddymap/internal/core/domain"
)

const shopColumns = `
	id::text, name, shop_type, COALESCE(address, ''), COALESCE(city, ''),
	latitude, longitude,
	COALESCE(phone_number, ''), COALESCE(whatsapp_number, ''), COALESCE(email, ''),
	rating, COALESCE(opening_time, ''), COALESCE(closing_time, '')`

// ShopRepo implements ports.ShopRepository with pgx.
type ShopRepo struct {
	db *DB
}

// NewShopRepo creates a new ShopRepo.
func NewShopRepo(db *DB) *ShopRepo {
	return &ShopRepo{db: db}
}

// UpsertBatch inserts many shops using pgx.Batch, keyed by name and city.
func (r *ShopRepo) UpsertBatch(ctx context.Context, shops []domain.Shop) error {
	batch := &pgx.Batch{}
	for _, s := range shops {
		batch.Queue(`
			INSERT INTO pesticide_shops (name, shop_type, address, city, latitude, longitude,
			                             phone_number, whatsapp_number, email, rating, opening_time, closing_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (name, city) DO UPDATE
			SET shop_type = EXCLUDED.shop_type, address = EXCLUDED.address,
			    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			    phone_number = EXCLUDED.phone_number, whatsapp_number = EXCLUDED.whatsapp_number,
			    email = EXCLUDED.email, rating = EXCLUDED.rating,
			    opening_time = EXCLUDED.opening_time, closing_time = EXCLUDED.closing_time
		`, s.Name, s.ShopType, s.Address, s.City, s.Location.Latitude, s.Location.Longitude,
			s.Phone, s.WhatsApp, s.Email, s.Rating, s.OpeningTime, s.ClosingTime)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range shops {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a shop by ID.
func (r *ShopRepo) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+shopColumns+` FROM pesticide_shops WHERE id::text = $1`, id)
	s, err := scanShop(row)
	if err != nil {
		return nil, notFound("shop", id, err)
	}
	return s, nil
}

// List returns up to limit shops ordered by id.
func (r *ShopRepo) List(ctx context.Context, limit int) ([]domain.Shop, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+shopColumns+` FROM pesticide_shops ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectShops(rows)
}

// InBounds returns shops inside the bounding box ordered by id.
func (r *ShopRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shop, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+shopColumns+`
		FROM pesticide_shops
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY id
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if err != nil {
		return nil, err
	}
	return collectShops(rows)
}

func scanShop(row pgx.Row) (*domain.Shop, error) {
	var s domain.Shop
	if err := row.Scan(
		&s.ID, &s.Name, &s.ShopType, &s.Address, &s.City,
		&s.Location.Latitude, &s.Location.Longitude,
		&s.Phone, &s.WhatsApp, &s.Email,
		&s.Rating, &s.OpeningTime, &s.ClosingTime,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectShops(rows pgx.Rows) ([]domain.Shop, error) {
	defer rows.Close()

	shops := make([]domain.Shop, 0)
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, *s)
	}
	return shops, rows.Err()
}
