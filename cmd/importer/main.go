package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/paddymap/paddymap/internal/adapters/postgres"
	"github.com/paddymap/paddymap/internal/adapters/sheets"
	"github.com/paddymap/paddymap/internal/adapters/valkey"
	"github.com/paddymap/paddymap/internal/core/usecases"
	"github.com/paddymap/paddymap/internal/pkg/config"
	"github.com/paddymap/paddymap/internal/pkg/logging"
)

// importer loads shops, research centers and products from an .xlsx workbook.
//
//	importer <workbook.xlsx>
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: importer <workbook.xlsx>")
	}

	cfg, err := config.Load("paddymap-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	wb, err := sheets.ReadWorkbook(f)
	if err != nil {
		log.Fatalf("read workbook: %v", err)
	}
	slog.Info("workbook parsed",
		"shops", len(wb.Shops),
		"research_centers", len(wb.Centers),
		"products", len(wb.Products),
		"skipped_rows", wb.Skipped,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	start := time.Now()

	if len(wb.Shops) > 0 {
		shops := usecases.NewShopService(postgres.NewShopRepo(db), nil)
		if err := shops.UpsertBatch(ctx, wb.Shops); err != nil {
			log.Fatalf("import shops: %v", err)
		}
	}
	if len(wb.Centers) > 0 {
		centers := usecases.NewResearchCenterService(postgres.NewResearchCenterRepo(db))
		if err := centers.UpsertBatch(ctx, wb.Centers); err != nil {
			log.Fatalf("import research centers: %v", err)
		}
	}
	if len(wb.Products) > 0 {
		products := usecases.NewProductService(postgres.NewProductRepo(db), nil)
		if err := products.UpsertBatch(ctx, wb.Products); err != nil {
			log.Fatalf("import products: %v", err)
		}
	}

	// Shop and product lists are cached; drop them so the import shows up at once.
	cache, err := valkey.New(cfg.Valkey.Addr, "paddymap:")
	if err != nil {
		slog.Warn("valkey unavailable, cached lists expire on their own", "error", err)
	} else {
		defer cache.Close()
		for _, prefix := range []string{"shops:", "products:"} {
			n, err := cache.DeletePrefix(ctx, prefix)
			if err != nil {
				slog.Warn("cache invalidation failed", "prefix", prefix, "error", err)
				continue
			}
			slog.Info("cache invalidated", "prefix", prefix, "keys", n)
		}
	}

	slog.Info("import complete", "took", time.Since(start).String())
}
