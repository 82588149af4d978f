package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paddymap/paddymap/internal/core/domain"
)

const centerColumns = `
	id::text, name, COALESCE(description, ''), COALESCE(address, ''), city, COALESCE(state, ''),
	latitude, longitude,
	COALESCE(email, ''), COALESCE(phone_number, ''), COALESCE(whatsapp_number, ''), COALESCE(website, ''),
	COALESCE(expertise, '{}')`

// ResearchCenterRepo implements ports.ResearchCenterRepository with pgx.
type ResearchCenterRepo struct {
	db *DB
}

// NewResearchCenterRepo creates a new ResearchCenterRepo.
func NewResearchCenterRepo(db *DB) *ResearchCenterRepo {
	return &ResearchCenterRepo{db: db}
}

// UpsertBatch inserts many research centers, keyed by name and city.
func (r *ResearchCenterRepo) UpsertBatch(ctx context.Context, centers []domain.ResearchCenter) error {
	batch := &pgx.Batch{}
	for _, c := range centers {
		batch.Queue(`
			INSERT INTO research_labs (name, description, address, city, state, latitude, longitude,
			                           email, phone_number, whatsapp_number, website, expertise)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (name, city) DO UPDATE
			SET description = EXCLUDED.description, address = EXCLUDED.address, state = EXCLUDED.state,
			    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			    email = EXCLUDED.email, phone_number = EXCLUDED.phone_number,
			    whatsapp_number = EXCLUDED.whatsapp_number, website = EXCLUDED.website,
			    expertise = EXCLUDED.expertise
		`, c.Name, c.Description, c.Address, c.City, c.State, c.Location.Latitude, c.Location.Longitude,
			c.Email, c.Phone, c.WhatsApp, c.Website, c.Expertise)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range centers {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a research center by ID.
func (r *ResearchCenterRepo) GetByID(ctx context.Context, id string) (*domain.ResearchCenter, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+centerColumns+` FROM research_labs WHERE id::text = $1`, id)
	c, err := scanCenter(row)
	if err != nil {
		return nil, notFound("research center", id, err)
	}
	return c, nil
}

// List returns all research centers ordered by city, then name.
func (r *ResearchCenterRepo) List(ctx context.Context) ([]domain.ResearchCenter, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+centerColumns+` FROM research_labs ORDER BY city, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	centers := make([]domain.ResearchCenter, 0)
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, err
		}
		centers = append(centers, *c)
	}
	return centers, rows.Err()
}

func scanCenter(row pgx.Row) (*domain.ResearchCenter, error) {
	var c domain.ResearchCenter
	if err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Address, &c.City, &c.State,
		&c.Location.Latitude, &c.Location.Longitude,
		&c.Email, &c.Phone, &c.WhatsApp, &c.Website,
		&c.Expertise,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
