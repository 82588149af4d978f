package usecases

import (
	"context"
	"sort"
	"strings"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
)

// FarmerService gives researchers a filtered view of registered farmers.
type FarmerService struct {
	farmers ports.FarmerRepository
}

// NewFarmerService creates a new FarmerService.
func NewFarmerService(farmers ports.FarmerRepository) *FarmerService {
	return &FarmerService{farmers: farmers}
}

// Filter returns one page of farmers matching f and the total match count.
// Search is case-insensitive over name, email and city; City must match exactly.
func (s *FarmerService) Filter(ctx context.Context, f domain.FarmerFilter) ([]domain.Farmer, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	all, err := s.farmers.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]domain.Farmer, 0, len(all))
	for _, farmer := range all {
		if f.City != "" && farmer.City != f.City {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(farmer.FullName), term) &&
			!strings.Contains(strings.ToLower(farmer.Email), term) &&
			!strings.Contains(strings.ToLower(farmer.City), term) {
			continue
		}
		matched = append(matched, farmer)
	}

	total := len(matched)
	if f.Offset >= total {
		return []domain.Farmer{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

// GetByID returns a single farmer.
func (s *FarmerService) GetByID(ctx context.Context, id string) (*domain.Farmer, error) {
	return s.farmers.GetByID(ctx, id)
}

// Cities returns the distinct, sorted cities farmers registered from.
func (s *FarmerService) Cities(ctx context.Context) ([]string, error) {
	all, err := s.farmers.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	cities := make([]string, 0)
	for _, f := range all {
		if f.City == "" || seen[f.City] {
			continue
		}
		seen[f.City] = true
		cities = append(cities, f.City)
	}
	sort.Strings(cities)
	return cities, nil
}
