package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
)

// ShopLocator finds the map entities nearest to a point.
// usecases.MapService satisfies it.
type ShopLocator interface {
	Nearest(ctx context.Context, center domain.GeoPoint, category string, radiusKm float64, n int) ([]domain.RankedEntity, error)
}

// AdviceActivities holds the activity implementations for the treatment-advice workflow.
type AdviceActivities struct {
	Shops     ShopLocator
	Publisher ports.EventPublisher
	RadiusKm  float64
	MaxShops  int
}

// FindTreatmentShops returns the pesticide shops nearest to the detection.
func (a *AdviceActivities) FindTreatmentShops(ctx context.Context, input AdviceInput) ([]domain.RankedEntity, error) {
	shops, err := a.Shops.Nearest(ctx, input.Location, domain.ShopTypePesticides, a.RadiusKm, a.MaxShops)
	if err != nil {
		return nil, fmt.Errorf("nearest pesticide shops: %w", err)
	}
	activity.GetLogger(ctx).Info("treatment shops found", "detection_id", input.DetectionID, "count", len(shops))
	return shops, nil
}

// PublishAdvice sends the advice to the farmer's subject.
func (a *AdviceActivities) PublishAdvice(ctx context.Context, advice domain.TreatmentAdvice) error {
	if err := a.Publisher.PublishAdvice(ctx, &advice); err != nil {
		return fmt.Errorf("publish advice for %s: %w", advice.DetectionID, err)
	}
	return nil
}
