package postgres

import (
	"context"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// RecommendationRepo implements ports.RecommendationRepository with pgx.
type RecommendationRepo struct {
	db *DB
}

// NewRecommendationRepo creates a new RecommendationRepo.
func NewRecommendationRepo(db *DB) *RecommendationRepo {
	return &RecommendationRepo{db: db}
}

// Insert stores a recommendation. Contact details are read from the farmer row.
func (r *RecommendationRepo) Insert(ctx context.Context, rec *domain.Recommendation) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO recommendations (id, farmer_id, research_center_id, message, contact_method, sent_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
	`, rec.ID, rec.FarmerID, rec.ResearchCenterID, rec.Message, rec.ContactMethod, rec.SentAt)
	return err
}

// ListByFarmer returns a farmer's recommendations, newest first.
func (r *RecommendationRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Recommendation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT r.id::text, r.farmer_id::text, f.full_name, COALESCE(r.research_center_id, ''),
		       r.message, r.contact_method, COALESCE(f.phone_number, ''), f.email,
		       COALESCE(NULLIF(f.whatsapp_number, ''), f.phone_number, ''), r.sent_at
		FROM recommendations r
		JOIN farmers f ON f.id = r.farmer_id
		WHERE r.farmer_id::text = $1
		ORDER BY r.sent_at DESC
		LIMIT $2
	`, farmerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]domain.Recommendation, 0)
	for rows.Next() {
		var (
			rec      domain.Recommendation
			whatsApp string
		)
		if err := rows.Scan(
			&rec.ID, &rec.FarmerID, &rec.FarmerName, &rec.ResearchCenterID,
			&rec.Message, &rec.ContactMethod, &rec.Contact.Phone, &rec.Contact.Email,
			&whatsApp, &rec.SentAt,
		); err != nil {
			return nil, err
		}
		rec.Contact.WhatsApp = domain.Farmer{WhatsApp: whatsApp, Phone: rec.Contact.Phone}.WhatsAppLink()
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
