package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/paddymap/paddymap/internal/adapters/nats"
	"github.com/paddymap/paddymap/internal/adapters/postgres"
	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/usecases"
	"github.com/paddymap/paddymap/internal/pkg/config"
	"github.com/paddymap/paddymap/internal/pkg/logging"
	"github.com/paddymap/paddymap/internal/workflows"
)

// The advisor runs the treatment-advice worker. It also consumes the
// detection stream so that detections recorded while Temporal was
// unreachable from the API still get advice; workflow IDs are keyed by
// detection, so a second start for the same detection is a no-op.
func main() {
	cfg, err := config.Load("paddymap-advisor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	logging.Setup(logLevel, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Advice only needs stored shops; amenities are never pesticide sellers.
	mapSvc := usecases.NewMapService(postgres.NewShopRepo(db), postgres.NewResearchCenterRepo(db), nil, nil, 0)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.TreatmentAdviceWorkflow)
	w.RegisterActivity(&workflows.AdviceActivities{
		Shops:     mapSvc,
		Publisher: pub,
		RadiusKm:  cfg.Map.AdviceRadiusKm,
		MaxShops:  cfg.Map.AdviceShops,
	})

	starter := workflows.NewAdviceStarter(c, cfg.Temporal.TaskQueue)
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeDetections(ctx, "advisor", func(ctx context.Context, d *domain.Detection) error {
		if d.Healthy || d.Location == nil {
			return nil
		}
		return starter.StartAdvice(ctx, d)
	})
	if err != nil {
		log.Fatalf("subscribe detections: %v", err)
	}

	slog.Info("advisor worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
