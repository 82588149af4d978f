package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

// DefaultRadiusKm is the shop search radius used when the caller gives none.
const DefaultRadiusKm = 10.0

// ShopService handles shop-related business logic.
type ShopService struct {
	shops ports.ShopRepository
	cache ports.CacheService
}

// NewShopService creates a new ShopService. cache may be nil.
func NewShopService(shops ports.ShopRepository, cache ports.CacheService) *ShopService {
	return &ShopService{shops: shops, cache: cache}
}

// FindNearby returns shops within radiusKm of center, nearest first, with
// Distance filled in and rounded to two decimals.
func (s *ShopService) FindNearby(ctx context.Context, center domain.GeoPoint, radiusKm float64, limit int) ([]domain.Shop, error) {
	if err := geospatial.ValidatePoint(center); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	limit = clampLimit(limit)

	// Try cache
	cacheKey := fmt.Sprintf("shops:nearby:%.4f:%.4f:%.2f:%d", center.Latitude, center.Longitude, radiusKm, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var shops []domain.Shop
			if err := json.Unmarshal(data, &shops); err == nil {
				metrics.CacheHits.WithLabelValues("shops_nearby").Inc()
				return shops, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("shops_nearby").Inc()
	}

	candidates, err := s.shops.InBounds(ctx, geospatial.BoundingBox(center, radiusKm))
	if err != nil {
		return nil, fmt.Errorf("shops in bounds: %w", err)
	}

	byRef := make(map[string]domain.Shop, len(candidates))
	entities := make([]domain.MapEntity, 0, len(candidates))
	for _, shop := range candidates {
		e := ShopEntity(shop)
		byRef[e.Ref] = shop
		entities = append(entities, e)
	}

	ranked := geospatial.WithinRadius(geospatial.RankByProximity(center, entities), radiusKm)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	shops := make([]domain.Shop, 0, len(ranked))
	for _, r := range ranked {
		shop := byRef[r.Ref]
		d := roundKm(r.DistanceKm)
		shop.Distance = &d
		shops = append(shops, shop)
	}

	// Cache for 5 minutes (shops are only changed by the importer)
	if s.cache != nil {
		if data, err := json.Marshal(shops); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return shops, nil
}

// clampLimit defaults a shop list limit to 50 and caps it at 200.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

// List returns shops without distance information.
func (s *ShopService) List(ctx context.Context, limit int) ([]domain.Shop, error) {
	limit = clampLimit(limit)
	return s.shops.List(ctx, limit)
}

// GetByID returns a single shop.
func (s *ShopService) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	if id == "" {
		return nil, fmt.Errorf("shop id: %w", domain.ErrNotFound)
	}
	return s.shops.GetByID(ctx, id)
}

// UpsertBatch stores imported shops after validating their coordinates.
func (s *ShopService) UpsertBatch(ctx context.Context, shops []domain.Shop) error {
	for _, shop := range shops {
		if err := geospatial.ValidatePoint(shop.Location); err != nil {
			return fmt.Errorf("shop %q: %w", shop.Name, err)
		}
	}
	return s.shops.UpsertBatch(ctx, shops)
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
