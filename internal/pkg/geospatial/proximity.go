package geospatial

import (
	"sort"
	"strings"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// RankByProximity attaches the distance from ref to every entity and returns
// them nearest first. Equal distances keep their input order. No entity is dropped.
func RankByProximity(ref domain.GeoPoint, entities []domain.MapEntity) []domain.RankedEntity {
	ranked := make([]domain.RankedEntity, len(entities))
	for i, e := range entities {
		ranked[i] = domain.RankedEntity{MapEntity: e, DistanceKm: Distance(ref, e.Location)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// WithinRadius keeps the ranked entities at most radiusKm away, preserving order.
func WithinRadius(ranked []domain.RankedEntity, radiusKm float64) []domain.RankedEntity {
	out := make([]domain.RankedEntity, 0, len(ranked))
	for _, r := range ranked {
		if r.DistanceKm <= radiusKm {
			out = append(out, r)
		}
	}
	return out
}

// SearchEntities returns the entities whose name or category contains term,
// ignoring case, in their original order. A blank term is rejected with
// domain.ErrEmptySearchTerm.
func SearchEntities(entities []domain.MapEntity, term string) ([]domain.MapEntity, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, domain.ErrEmptySearchTerm
	}

	matches := make([]domain.MapEntity, 0)
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Category), needle) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}
