package usecases

import (
	"context"
	"fmt"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
)

// ResearchCenterService handles research lab lookups.
type ResearchCenterService struct {
	centers ports.ResearchCenterRepository
}

// NewResearchCenterService creates a new ResearchCenterService.
func NewResearchCenterService(centers ports.ResearchCenterRepository) *ResearchCenterService {
	return &ResearchCenterService{centers: centers}
}

// List returns every research center ordered by city, then name.
func (s *ResearchCenterService) List(ctx context.Context) ([]domain.ResearchCenter, error) {
	return s.centers.List(ctx)
}

// GetByID returns a single research center.
func (s *ResearchCenterService) GetByID(ctx context.Context, id string) (*domain.ResearchCenter, error) {
	if id == "" {
		return nil, fmt.Errorf("research center id: %w", domain.ErrNotFound)
	}
	return s.centers.GetByID(ctx, id)
}

// UpsertBatch stores imported research centers.
func (s *ResearchCenterService) UpsertBatch(ctx context.Context, centers []domain.ResearchCenter) error {
	for _, c := range centers {
		if err := geospatial.ValidatePoint(c.Location); err != nil {
			return fmt.Errorf("research center %q: %w", c.Name, err)
		}
	}
	return s.centers.UpsertBatch(ctx, centers)
}
