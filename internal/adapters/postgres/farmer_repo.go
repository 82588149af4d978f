package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/paddymap/paddymap/internal/core/domain"
)

const farmerColumns = `
	id::text, full_name, email, COALESCE(phone_number, ''), COALESCE(whatsapp_number, ''),
	COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(farm_size, 0),
	latitude, longitude, joined_date`

// FarmerRepo implements ports.FarmerRepository with pgx.
type FarmerRepo struct {
	db *DB
}

// NewFarmerRepo creates a new FarmerRepo.
func NewFarmerRepo(db *DB) *FarmerRepo {
	return &FarmerRepo{db: db}
}

// List returns all farmers, most recently joined first.
func (r *FarmerRepo) List(ctx context.Context) ([]domain.Farmer, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+farmerColumns+` FROM farmers ORDER BY joined_date DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	farmers := make([]domain.Farmer, 0)
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, err
		}
		farmers = append(farmers, *f)
	}
	return farmers, rows.Err()
}

// GetByID returns a farmer by ID.
func (r *FarmerRepo) GetByID(ctx context.Context, id string) (*domain.Farmer, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE id::text = $1`, id)
	f, err := scanFarmer(row)
	if err != nil {
		return nil, notFound("farmer", id, err)
	}
	return f, nil
}

func scanFarmer(row pgx.Row) (*domain.Farmer, error) {
	var (
		f        domain.Farmer
		lat, lon *float64
	)
	if err := row.Scan(
		&f.ID, &f.FullName, &f.Email, &f.Phone, &f.WhatsApp,
		&f.Address, &f.City, &f.State, &f.FarmSize,
		&lat, &lon, &f.JoinedAt,
	); err != nil {
		return nil, err
	}
	f.Location = optionalPoint(lat, lon)
	return &f, nil
}
