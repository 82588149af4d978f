package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies inside the WGS 84 coordinate range.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p falls inside the box (edges included).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// MapEntity is a named, categorized point of interest shown on the farmer map.
type MapEntity struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Location GeoPoint `json:"location"`
	// Ref is the marker key owned by the map client (e.g. "shop:42").
	Ref string `json:"ref,omitempty"`
}

// RankedEntity is a MapEntity with its distance from a reference point.
type RankedEntity struct {
	MapEntity
	DistanceKm float64 `json:"distance_km"`
}
