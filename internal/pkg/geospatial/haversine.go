// Package geospatial holds the distance, ranking and search helpers behind the farmer map.
// Everything here is a pure function of its inputs.
package geospatial

import (
	"fmt"
	"math"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance calculates the great-circle distance in kilometers between two points.
// Inputs are not validated; see ValidatePoint.
func Distance(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox returns the smallest latitude/longitude box containing every point
// within radiusKm of p. It is a coarse prefilter; use Distance for the exact cutoff.
func BoundingBox(p domain.GeoPoint, radiusKm float64) domain.Bounds {
	angular := radiusKm / EarthRadiusKm
	latDelta := toDeg(angular)

	// Near the poles (or for huge radii) the circle wraps every meridian.
	lonDelta := 180.0
	if c := math.Cos(toRad(p.Latitude)); c > 1e-9 {
		if x := math.Sin(angular) / c; angular < math.Pi/2 && x < 1 {
			lonDelta = toDeg(math.Asin(x))
		}
	}

	minLon, maxLon := p.Longitude-lonDelta, p.Longitude+lonDelta
	// A box crossing the antimeridian cannot be expressed as one lon range.
	if minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}

	return domain.Bounds{
		MinLat: math.Max(p.Latitude-latDelta, -90),
		MinLon: minLon,
		MaxLat: math.Min(p.Latitude+latDelta, 90),
		MaxLon: maxLon,
	}
}

// ValidatePoint returns domain.ErrInvalidCoordinate when p is outside the WGS 84 range.
func ValidatePoint(p domain.GeoPoint) error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) || !p.Valid() {
		return fmt.Errorf("%w: lat=%v lon=%v", domain.ErrInvalidCoordinate, p.Latitude, p.Longitude)
	}
	return nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
