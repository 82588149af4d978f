package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.Get(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/researcher/"),
			strings.HasPrefix(path, "/v1/farmers/"),
			strings.HasPrefix(path, "/v1/detections"):
			// Per-user and fast-changing data.
			ttl = "private, no-store"

		case strings.HasPrefix(path, "/v1/research-centers"),
			strings.HasPrefix(path, "/v1/products"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/geocode"):
			ttl = "public, max-age=86400"

		case strings.HasPrefix(path, "/v1/places/nearby"),
			strings.HasPrefix(path, "/v1/shops/nearby"),
			strings.HasPrefix(path, "/v1/map/"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/shops/"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
