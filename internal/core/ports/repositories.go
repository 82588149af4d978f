package ports

import (
	"context"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// ShopRepository persists pesticide and fertilizer shops.
type ShopRepository interface {
	UpsertBatch(ctx context.Context, shops []domain.Shop) error
	GetByID(ctx context.Context, id string) (*domain.Shop, error)
	List(ctx context.Context, limit int) ([]domain.Shop, error)
	// InBounds returns shops inside the box in a stable (id) order.
	InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shop, error)
}

// ResearchCenterRepository persists research labs.
type ResearchCenterRepository interface {
	UpsertBatch(ctx context.Context, centers []domain.ResearchCenter) error
	GetByID(ctx context.Context, id string) (*domain.ResearchCenter, error)
	// List returns all centers ordered by city, then name.
	List(ctx context.Context) ([]domain.ResearchCenter, error)
}

// FarmerRepository reads farmer profiles.
type FarmerRepository interface {
	// List returns all farmers, most recently joined first.
	List(ctx context.Context) ([]domain.Farmer, error)
	GetByID(ctx context.Context, id string) (*domain.Farmer, error)
}

// DetectionRepository persists classified images.
type DetectionRepository interface {
	Insert(ctx context.Context, d *domain.Detection) error
	ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Detection, error)
	Stats(ctx context.Context) (*domain.DetectionStats, error)
	// Treatment returns the treatment text for a disease, or "" when unknown.
	Treatment(ctx context.Context, disease string) (string, error)
}

// ProductRepository persists the pesticide and fertilizer catalog.
type ProductRepository interface {
	UpsertBatch(ctx context.Context, products []domain.Product) error
	// List returns products of productType ordered by name; "" means every type.
	List(ctx context.Context, productType string) ([]domain.Product, error)
}

// RecommendationRepository persists researcher recommendations.
type RecommendationRepository interface {
	Insert(ctx context.Context, r *domain.Recommendation) error
	ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Recommendation, error)
}
