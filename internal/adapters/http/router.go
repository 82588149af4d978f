package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// Classification runs a model behind the call, so uploads get longer.
	detectTimeout = 90 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// The dashboards are served from a different origin than the API.
	allowOrigins := deps.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	t := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/shops", t(ListShopsHandler(deps)))
	v1.Get("/shops/nearby", t(NearbyShopsHandler(deps)))
	v1.Get("/shops/:id", t(GetShopHandler(deps)))
	v1.Get("/research-centers", t(ListResearchCentersHandler(deps)))
	v1.Get("/research-centers/:id", t(GetResearchCenterHandler(deps)))
	v1.Get("/places/nearby", t(NearbyPlacesHandler(deps)))
	v1.Get("/geocode", t(GeocodeHandler(deps)))

	v1.Get("/map/entities", t(MapEntitiesHandler(deps)))
	v1.Get("/map/entities.xlsx", t(MapExportHandler(deps)))
	v1.Get("/map/search", t(MapSearchHandler(deps)))

	v1.Post("/detections", timeout.NewWithContext(CreateDetectionHandler(deps), detectTimeout))
	v1.Get("/detections/stats", t(DetectionStatsHandler(deps)))
	v1.Get("/farmers/:id/detections", t(FarmerDetectionsHandler(deps)))
	v1.Get("/farmers/:id/recommendations", t(FarmerRecommendationsHandler(deps)))

	v1.Get("/products", t(ListProductsHandler(deps)))

	v1.Get("/researcher/farmers", t(ResearcherFarmersHandler(deps)))
	v1.Get("/researcher/farmers/:id", t(GetFarmerHandler(deps)))
	v1.Get("/researcher/cities", t(CitiesHandler(deps)))
	v1.Post("/researcher/recommendations", t(SendRecommendationHandler(deps)))

	// GraphQL
	app.Post("/graphql", t(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
