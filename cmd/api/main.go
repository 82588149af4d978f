package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/paddymap/paddymap/internal/adapters/classifier"
	"github.com/paddymap/paddymap/internal/adapters/http"
	natsadapter "github.com/paddymap/paddymap/internal/adapters/nats"
	"github.com/paddymap/paddymap/internal/adapters/nominatim"
	"github.com/paddymap/paddymap/internal/adapters/overpass"
	"github.com/paddymap/paddymap/internal/adapters/postgres"
	"github.com/paddymap/paddymap/internal/adapters/valkey"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/core/usecases"
	"github.com/paddymap/paddymap/internal/pkg/config"
	"github.com/paddymap/paddymap/internal/pkg/logging"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
	"github.com/paddymap/paddymap/internal/pkg/telemetry"
	"github.com/paddymap/paddymap/internal/workflows"
)

func main() {
	cfg, err := config.Load("paddymap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	logging.Setup(logLevel, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache
	var listCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "paddymap:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		listCache = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Temporal (treatment advice)
	var advice ports.AdviceStarter
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, treatment advice disabled", "error", err)
		} else {
			defer tc.Close()
			advice = workflows.NewAdviceStarter(tc, cfg.Temporal.TaskQueue)
		}
	}

	// External services
	var places ports.PlaceProvider
	if cfg.Overpass.URL != "" {
		places = overpass.New(cfg.Overpass.URL, time.Duration(cfg.Overpass.Timeout)*time.Second)
	}
	var geocoder ports.Geocoder
	if cfg.Nominatim.URL != "" {
		geocoder = nominatim.New(cfg.Nominatim.URL, cfg.Nominatim.CountryCode, cfg.Nominatim.UserAgent,
			time.Duration(cfg.Nominatim.Timeout)*time.Second)
	}
	clf := classifier.New(cfg.Classifier.URL, time.Duration(cfg.Classifier.Timeout)*time.Second)

	// Repos
	shopRepo := postgres.NewShopRepo(db)
	centerRepo := postgres.NewResearchCenterRepo(db)
	detectionRepo := postgres.NewDetectionRepo(db)
	farmerRepo := postgres.NewFarmerRepo(db)
	productRepo := postgres.NewProductRepo(db)
	recommendationRepo := postgres.NewRecommendationRepo(db)

	deps := &http.Dependencies{
		Shops:           usecases.NewShopService(shopRepo, listCache),
		Centers:         usecases.NewResearchCenterService(centerRepo),
		Map:             usecases.NewMapService(shopRepo, centerRepo, places, geocoder, cfg.Overpass.RadiusMeters),
		Detections:      usecases.NewDetectionService(detectionRepo, clf, publisher, advice),
		Farmers:         usecases.NewFarmerService(farmerRepo),
		Products:        usecases.NewProductService(productRepo, listCache),
		Recommendations: usecases.NewRecommendationService(recommendationRepo, farmerRepo, publisher),
		NATS:            natsConn,
		DB:              db,
		Cache:           cache,
		Limits: http.Limits{
			DefaultRadiusKm: cfg.Map.DefaultRadiusKm,
			MaxRadiusKm:     cfg.Map.MaxRadiusKm,
		},
		AllowOrigins: cfg.Server.AllowOrigins,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024, // leaf photos from phones
		AppName:      "PaddyMap API",
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats refreshes the database pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
