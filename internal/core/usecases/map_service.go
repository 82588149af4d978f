package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
	"github.com/paddymap/paddymap/internal/pkg/logging"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
	"github.com/paddymap/paddymap/internal/pkg/telemetry"
)

// maxMapShops caps how many shops an unbounded map view loads.
const maxMapShops = 1000

// ErrGeocoderUnavailable is returned by Locate when no geocoder is configured.
var ErrGeocoderUnavailable = errors.New("geocoder unavailable")

// MapView is the set of entities shown on one farmer map, plus the
// reference point and radius they are ranked against.
type MapView struct {
	Center   *domain.GeoPoint   `json:"center,omitempty"`
	RadiusKm float64            `json:"radius_km"`
	Entities []domain.MapEntity `json:"entities"`
}

// Ranked returns the view's entities nearest first, limited to RadiusKm when
// it is positive. Without a center, entities keep load order and zero distance.
func (v *MapView) Ranked() []domain.RankedEntity {
	if v.Center == nil {
		out := make([]domain.RankedEntity, 0, len(v.Entities))
		for _, e := range v.Entities {
			out = append(out, domain.RankedEntity{MapEntity: e})
		}
		return out
	}
	ranked := geospatial.RankByProximity(*v.Center, v.Entities)
	if v.RadiusKm > 0 {
		ranked = geospatial.WithinRadius(ranked, v.RadiusKm)
	}
	return ranked
}

// Search filters the view by name or category. Matches are ranked by
// proximity when the view has a center.
func (v *MapView) Search(term string) ([]domain.RankedEntity, error) {
	matches, err := geospatial.SearchEntities(v.Entities, term)
	if err != nil {
		return nil, err
	}
	sub := MapView{Center: v.Center, RadiusKm: v.RadiusKm, Entities: matches}
	return sub.Ranked(), nil
}

// MapService assembles map views from shops, research centers and amenities.
type MapService struct {
	shops         ports.ShopRepository
	centers       ports.ResearchCenterRepository
	places        ports.PlaceProvider
	geocoder      ports.Geocoder
	amenityRadius int
}

// NewMapService creates a new MapService. places and geocoder may be nil.
func NewMapService(
	shops ports.ShopRepository,
	centers ports.ResearchCenterRepository,
	places ports.PlaceProvider,
	geocoder ports.Geocoder,
	amenityRadiusMeters int,
) *MapService {
	if amenityRadiusMeters <= 0 {
		amenityRadiusMeters = 2000
	}
	return &MapService{
		shops:         shops,
		centers:       centers,
		places:        places,
		geocoder:      geocoder,
		amenityRadius: amenityRadiusMeters,
	}
}

// BuildView loads every entity for a map. When center is set, shops are
// prefiltered by radius and nearby amenities are included.
func (s *MapService) BuildView(ctx context.Context, center *domain.GeoPoint, radiusKm float64) (*MapView, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "MapService.BuildView")
	defer span.End()

	if center != nil {
		if err := geospatial.ValidatePoint(*center); err != nil {
			return nil, err
		}
	}

	entities, err := s.load(ctx, center, radiusKm, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("map.entities", len(entities)))
	metrics.MapEntitiesServed.Observe(float64(len(entities)))

	return &MapView{Center: center, RadiusKm: radiusKm, Entities: entities}, nil
}

// Nearest returns up to n entities of category nearest to center within radiusKm.
// The pesticides and fertilizers categories also match shops selling both.
func (s *MapService) Nearest(ctx context.Context, center domain.GeoPoint, category string, radiusKm float64, n int) ([]domain.RankedEntity, error) {
	if err := geospatial.ValidatePoint(center); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 3
	}

	entities, err := s.load(ctx, &center, radiusKm, !isStoredCategory(category))
	if err != nil {
		return nil, err
	}

	view := MapView{Center: &center, RadiusKm: radiusKm, Entities: entities}
	out := make([]domain.RankedEntity, 0, n)
	for _, r := range view.Ranked() {
		if !categoryMatches(r.Category, category) {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Locate geocodes a free-text place name.
func (s *MapService) Locate(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	if s.geocoder == nil {
		return nil, ErrGeocoderUnavailable
	}
	return s.geocoder.Geocode(ctx, query)
}

// NearbyPlaces returns amenities around center.
func (s *MapService) NearbyPlaces(ctx context.Context, center domain.GeoPoint) ([]domain.Place, error) {
	if err := geospatial.ValidatePoint(center); err != nil {
		return nil, err
	}
	if s.places == nil {
		return []domain.Place{}, nil
	}
	return s.places.Nearby(ctx, center, s.amenityRadius)
}

func (s *MapService) load(ctx context.Context, center *domain.GeoPoint, radiusKm float64, withPlaces bool) ([]domain.MapEntity, error) {
	var (
		shops []domain.Shop
		err   error
	)
	if center != nil && radiusKm > 0 {
		shops, err = s.shops.InBounds(ctx, geospatial.BoundingBox(*center, radiusKm))
	} else {
		shops, err = s.shops.List(ctx, maxMapShops)
	}
	if err != nil {
		return nil, fmt.Errorf("load shops: %w", err)
	}

	centers, err := s.centers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load research centers: %w", err)
	}

	entities := make([]domain.MapEntity, 0, len(shops)+len(centers))
	for _, shop := range shops {
		entities = append(entities, ShopEntity(shop))
	}
	for _, c := range centers {
		entities = append(entities, ResearchCenterEntity(c))
	}

	if withPlaces && center != nil && s.places != nil {
		places, err := s.places.Nearby(ctx, *center, s.amenityRadius)
		if err != nil {
			logging.FromContext(ctx).Warn("nearby amenities unavailable", "error", err)
		}
		for _, p := range places {
			entities = append(entities, PlaceEntity(p))
		}
	}

	return entities, nil
}

// ShopEntity converts a shop to a map entity keyed "shop:<id>".
func ShopEntity(s domain.Shop) domain.MapEntity {
	return domain.MapEntity{Name: s.Name, Category: s.ShopType, Location: s.Location, Ref: "shop:" + s.ID}
}

// ResearchCenterEntity converts a research center to a map entity keyed "center:<id>".
func ResearchCenterEntity(c domain.ResearchCenter) domain.MapEntity {
	return domain.MapEntity{Name: c.Name, Category: domain.CategoryResearchCenter, Location: c.Location, Ref: "center:" + c.ID}
}

// PlaceEntity converts an amenity to a map entity keyed "place:<id>".
func PlaceEntity(p domain.Place) domain.MapEntity {
	return domain.MapEntity{Name: p.Name, Category: p.Amenity, Location: p.Location, Ref: "place:" + strconv.FormatInt(p.ID, 10)}
}

func isStoredCategory(category string) bool {
	switch category {
	case domain.ShopTypePesticides, domain.ShopTypeFertilizers, domain.ShopTypeBoth, domain.CategoryResearchCenter:
		return true
	}
	return false
}

func categoryMatches(have, want string) bool {
	if have == want {
		return true
	}
	return have == domain.ShopTypeBoth && (want == domain.ShopTypePesticides || want == domain.ShopTypeFertilizers)
}
