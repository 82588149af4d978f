package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// Version is reported by /v1/health; set with -ldflags "-X ...http.Version=...".
var Version = "dev"

const readyTimeout = 3 * time.Second

var errNotConfigured = errors.New("not configured")

// dependencyCheck is one readiness dependency. A nil check means it is not
// configured; required ones then fail readiness, optional ones are only reported.
type dependencyCheck struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

// dependencyChecks lists what /v1/ready checks. The database is always
// required; NATS and Valkey are required once configured.
func dependencyChecks(deps *Dependencies) []dependencyCheck {
	dc := []dependencyCheck{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		dc[0].check = func(ctx context.Context) error { return deps.DB.Pool.Ping(ctx) }
	}
	if deps.NATS != nil {
		dc[1].required = true
		dc[1].check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}
	if deps.Cache != nil {
		dc[2].required = true
		dc[2].check = deps.Cache.Ping
	}
	return dc
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// ReadyHandler runs every dependency check concurrently and answers 503
// when a required one fails.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	dc := dependencyChecks(deps)
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string, len(dc))
			ready  = true
		)
		var g errgroup.Group
		for _, d := range dc {
			d := d
			g.Go(func() error {
				err := errNotConfigured
				if d.check != nil {
					err = d.check(ctx)
				}

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					checks[d.name] = "ok"
				case errors.Is(err, errNotConfigured):
					checks[d.name] = err.Error()
				default:
					checks[d.name] = "error: " + err.Error()
				}
				if err != nil && d.required {
					ready = false
				}
				return nil
			})
		}
		_ = g.Wait()

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
