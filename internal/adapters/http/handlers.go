package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paddymap/paddymap/internal/adapters/sheets"
	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/usecases"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
)

const maxSearchLen = 200

// parsePoint reads a coordinate pair from lat/lon values. Both empty means
// no point was given; a single value or an out-of-range pair is an error.
func parsePoint(latRaw, lonRaw string) (*domain.GeoPoint, error) {
	latRaw, lonRaw = strings.TrimSpace(latRaw), strings.TrimSpace(lonRaw)
	if latRaw == "" && lonRaw == "" {
		return nil, nil
	}
	if latRaw == "" || lonRaw == "" {
		return nil, fmt.Errorf("lat and lon must be given together: %w", domain.ErrInvalidCoordinate)
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("lat %q: %w", latRaw, domain.ErrInvalidCoordinate)
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("lon %q: %w", lonRaw, domain.ErrInvalidCoordinate)
	}
	p := domain.GeoPoint{Latitude: lat, Longitude: lon}
	if err := geospatial.ValidatePoint(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// queryPoint parses the lat/lon query parameters.
func queryPoint(c *fiber.Ctx) (*domain.GeoPoint, error) {
	return parsePoint(c.Query("lat"), c.Query("lon"))
}

// requirePoint is queryPoint for endpoints where the point is mandatory.
func requirePoint(c *fiber.Ctx) (domain.GeoPoint, error) {
	p, err := queryPoint(c)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if p == nil {
		return domain.GeoPoint{}, fmt.Errorf("lat and lon are required: %w", domain.ErrInvalidCoordinate)
	}
	return *p, nil
}

// queryRadius reads radius (km), falling back to the default and rejecting
// values outside (0, max].
func queryRadius(c *fiber.Ctx, l Limits) (float64, error) {
	raw := c.Query("radius")
	if raw == "" {
		return l.DefaultRadiusKm, nil
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil || r <= 0 || r > l.MaxRadiusKm {
		return 0, fmt.Errorf("radius must be between 0 and %g km: %w", l.MaxRadiusKm, domain.ErrInvalidInput)
	}
	return r, nil
}

// ---- Shops ----

// ListShopsHandler returns shops without distance, as shown before the
// farmer's location is known.
func ListShopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shops, err := deps.Shops.List(c.UserContext(), c.QueryInt("limit", 50))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(shops)
	}
}

// NearbyShopsHandler returns shops within radius km of lat/lon, nearest first.
func NearbyShopsHandler(deps *Dependencies) fiber.Handler {
	limits := deps.Limits.withDefaults()
	return func(c *fiber.Ctx) error {
		center, err := requirePoint(c)
		if err != nil {
			return errFrom(c, err)
		}
		radius, err := queryRadius(c, limits)
		if err != nil {
			return errFrom(c, err)
		}

		shops, err := deps.Shops.FindNearby(c.UserContext(), center, radius, c.QueryInt("limit", 50))
		if err != nil {
			return errFrom(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(shops)
	}
}

// GetShopHandler returns a single shop by ID.
func GetShopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shop, err := deps.Shops.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(shop)
	}
}

// ---- Research centers ----

// ListResearchCentersHandler returns all research centers.
func ListResearchCentersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		centers, err := deps.Centers.List(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(centers)
	}
}

// GetResearchCenterHandler returns a single research center by ID.
func GetResearchCenterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := deps.Centers.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(center)
	}
}

// ---- Places & geocoding ----

// NearbyPlacesHandler returns OpenStreetMap amenities around lat/lon.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := requirePoint(c)
		if err != nil {
			return errFrom(c, err)
		}
		places, err := deps.Map.NearbyPlaces(c.UserContext(), center)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(places)
	}
}

// GeocodeHandler resolves a place name to coordinates.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if len(q) > maxSearchLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		res, err := deps.Map.Locate(c.UserContext(), q)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(res)
	}
}

// ---- Map ----

// mapViewResponse is the ranked view sent to the map client.
type mapViewResponse struct {
	Center   *domain.GeoPoint      `json:"center,omitempty"`
	RadiusKm float64               `json:"radius_km"`
	Entities []domain.RankedEntity `json:"entities"`
}

// buildView parses lat/lon/radius and loads the matching map view.
func buildView(c *fiber.Ctx, deps *Dependencies, limits Limits) (*usecases.MapView, error) {
	center, err := queryPoint(c)
	if err != nil {
		return nil, err
	}
	var radius float64
	if center != nil {
		if radius, err = queryRadius(c, limits); err != nil {
			return nil, err
		}
	}
	return deps.Map.BuildView(c.UserContext(), center, radius)
}

// MapEntitiesHandler returns every map entity, ranked when lat/lon are given.
func MapEntitiesHandler(deps *Dependencies) fiber.Handler {
	limits := deps.Limits.withDefaults()
	return func(c *fiber.Ctx) error {
		view, err := buildView(c, deps, limits)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(mapViewResponse{Center: view.Center, RadiusKm: view.RadiusKm, Entities: view.Ranked()})
	}
}

// MapExportHandler returns the ranked map view as an .xlsx workbook.
func MapExportHandler(deps *Dependencies) fiber.Handler {
	limits := deps.Limits.withDefaults()
	return func(c *fiber.Ctx) error {
		view, err := buildView(c, deps, limits)
		if err != nil {
			return errFrom(c, err)
		}

		var buf bytes.Buffer
		if err := sheets.WriteEntities(&buf, view.Ranked()); err != nil {
			return errFrom(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="map-entities.xlsx"`)
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Send(buf.Bytes())
	}
}

// MapSearchHandler filters the map view by name or category.
func MapSearchHandler(deps *Dependencies) fiber.Handler {
	limits := deps.Limits.withDefaults()
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if strings.TrimSpace(q) == "" {
			return errBadRequest(c, domain.ErrEmptySearchTerm.Error())
		}
		if len(q) > maxSearchLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		view, err := buildView(c, deps, limits)
		if err != nil {
			return errFrom(c, err)
		}
		matches, err := view.Search(q)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(mapViewResponse{Center: view.Center, RadiusKm: view.RadiusKm, Entities: matches})
	}
}

// ---- Detections ----

// CreateDetectionHandler classifies an uploaded leaf image.
// Form fields: image (file), farmer_id, optional lat and lon.
func CreateDetectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return errBadRequest(c, "image file is required")
		}
		location, err := parsePoint(c.FormValue("lat"), c.FormValue("lon"))
		if err != nil {
			return errFrom(c, err)
		}

		f, err := fh.Open()
		if err != nil {
			return errFrom(c, err)
		}
		defer f.Close()

		d, err := deps.Detections.Detect(c.UserContext(), usecases.DetectIn{
			FarmerID: c.FormValue("farmer_id"),
			Filename: fh.Filename,
			Image:    f,
			Location: location,
		})
		if err != nil {
			return errFrom(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// FarmerDetectionsHandler returns a farmer's detection history, newest first.
func FarmerDetectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		history, err := deps.Detections.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 20))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(history)
	}
}

// DetectionStatsHandler returns detection counts for the researcher dashboard.
func DetectionStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Detections.Stats(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(stats)
	}
}

// ---- Products ----

// ListProductsHandler returns the product catalog, optionally limited by
// type=pesticide|fertilizer|all.
func ListProductsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		catalog, err := deps.Products.Catalog(c.UserContext(), c.Query("type"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(catalog)
	}
}

// ---- Recommendations ----

// SendRecommendationHandler records a researcher's recommendation for a farmer.
// Body: {"farmer_id", "research_center_id", "message", "contact_method"}.
func SendRecommendationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.RecommendIn
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		r, err := deps.Recommendations.Send(c.UserContext(), in)
		if err != nil {
			return errFrom(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// FarmerRecommendationsHandler returns the recommendations a farmer received.
func FarmerRecommendationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := deps.Recommendations.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 20))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(recs)
	}
}

// ---- Researcher ----

// ResearcherFarmersHandler returns the filtered, paginated farmer list.
func ResearcherFarmersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		farmers, total, err := deps.Farmers.Filter(c.UserContext(), domain.FarmerFilter{
			Search: c.Query("q"),
			City:   c.Query("city"),
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			return errFrom(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: farmers, Pagination: pg})
	}
}

// CitiesHandler returns the distinct farmer cities for the filter dropdown.
func CitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cities, err := deps.Farmers.Cities(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(cities)
	}
}

// GetFarmerHandler returns one farmer profile.
func GetFarmerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farmer, err := deps.Farmers.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(farmer)
	}
}
