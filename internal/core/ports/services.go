package ports

import (
	"context"
	"io"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishDetection(ctx context.Context, d *domain.Detection) error
	PublishAdvice(ctx context.Context, advice *domain.TreatmentAdvice) error
	PublishRecommendation(ctx context.Context, r *domain.Recommendation) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PlaceProvider looks up amenities around a point.
type PlaceProvider interface {
	Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters int) ([]domain.Place, error)
}

// Geocoder resolves a free-text location to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*domain.GeocodeResult, error)
}

// Classifier sends a leaf image to the disease-classification backend.
type Classifier interface {
	Classify(ctx context.Context, filename string, image io.Reader) (*domain.Classification, error)
}

// AdviceStarter kicks off the asynchronous treatment-advice process for a detection.
type AdviceStarter interface {
	StartAdvice(ctx context.Context, d *domain.Detection) error
}
