package http

import (
	"github.com/nats-io/nats.go"
	"github.com/paddymap/paddymap/internal/adapters/postgres"
	"github.com/paddymap/paddymap/internal/adapters/valkey"
	"github.com/paddymap/paddymap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Shops           *usecases.ShopService
	Centers         *usecases.ResearchCenterService
	Map             *usecases.MapService
	Detections      *usecases.DetectionService
	Farmers         *usecases.FarmerService
	Products        *usecases.ProductService
	Recommendations *usecases.RecommendationService

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache

	Limits       Limits
	AllowOrigins string
}

// Limits bounds the radius accepted by map and shop queries.
type Limits struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

func (l Limits) withDefaults() Limits {
	if l.DefaultRadiusKm <= 0 {
		l.DefaultRadiusKm = usecases.DefaultRadiusKm
	}
	if l.MaxRadiusKm <= 0 {
		l.MaxRadiusKm = 500
	}
	return l
}
