package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// DetectionRepo implements ports.DetectionRepository with pgx.
type DetectionRepo struct {
	db *DB
}

// NewDetectionRepo creates a new DetectionRepo.
func NewDetectionRepo(db *DB) *DetectionRepo {
	return &DetectionRepo{db: db}
}

// Insert stores a detection.
func (r *DetectionRepo) Insert(ctx context.Context, d *domain.Detection) error {
	lat, lon := pointColumns(d.Location)
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO detections (id, farmer_id, image_filename, disease, confidence, is_healthy,
		                        treatment, latitude, longitude, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.FarmerID, d.ImageName, d.Disease, d.Confidence, d.Healthy,
		d.Treatment, lat, lon, d.DetectedAt)
	return err
}

// ListByFarmer returns a farmer's detections, newest first.
func (r *DetectionRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Detection, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, farmer_id::text, image_filename, disease, confidence, is_healthy,
		       COALESCE(treatment, ''), latitude, longitude, detected_at
		FROM detections
		WHERE farmer_id::text = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`, farmerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detections := make([]domain.Detection, 0)
	for rows.Next() {
		var (
			d        domain.Detection
			lat, lon *float64
		)
		if err := rows.Scan(
			&d.ID, &d.FarmerID, &d.ImageName, &d.Disease, &d.Confidence, &d.Healthy,
			&d.Treatment, &lat, &lon, &d.DetectedAt,
		); err != nil {
			return nil, err
		}
		d.Location = optionalPoint(lat, lon)
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

// Stats counts healthy and diseased detections, with a per-disease breakdown.
func (r *DetectionRepo) Stats(ctx context.Context) (*domain.DetectionStats, error) {
	stats := &domain.DetectionStats{ByDisease: make(map[string]int)}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_healthy),
		       COUNT(*) FILTER (WHERE NOT is_healthy)
		FROM detections
	`).Scan(&stats.Total, &stats.Healthy, &stats.Diseased)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT disease, COUNT(*) FROM detections
		WHERE NOT is_healthy
		GROUP BY disease
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			disease string
			n       int
		)
		if err := rows.Scan(&disease, &n); err != nil {
			return nil, err
		}
		stats.ByDisease[disease] = n
	}
	return stats, rows.Err()
}

// Treatment returns the recommended treatment for a disease, or "" when none is recorded.
func (r *DetectionRepo) Treatment(ctx context.Context, disease string) (string, error) {
	var treatment string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT treatment FROM disease_treatments WHERE lower(disease) = lower($1)
	`, disease).Scan(&treatment)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return treatment, err
}
