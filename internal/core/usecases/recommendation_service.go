package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/logging"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

const maxRecommendationLen = 2000

var contactMethods = map[string]bool{
	domain.ContactEmail:    true,
	domain.ContactWhatsApp: true,
	domain.ContactPhone:    true,
}

// RecommendIn is a recommendation a researcher wants to send.
type RecommendIn struct {
	FarmerID         string `json:"farmer_id"`
	ResearchCenterID string `json:"research_center_id"`
	Message          string `json:"message"`
	ContactMethod    string `json:"contact_method"`
}

// RecommendationService records researcher recommendations and notifies farmers.
type RecommendationService struct {
	recommendations ports.RecommendationRepository
	farmers         ports.FarmerRepository
	publisher       ports.EventPublisher
}

// NewRecommendationService creates a new RecommendationService. publisher may be nil.
func NewRecommendationService(
	recommendations ports.RecommendationRepository,
	farmers ports.FarmerRepository,
	publisher ports.EventPublisher,
) *RecommendationService {
	return &RecommendationService{
		recommendations: recommendations,
		farmers:         farmers,
		publisher:       publisher,
	}
}

// Send stores a recommendation for the farmer and returns it with the
// farmer's contact details. Publishing is best effort.
func (s *RecommendationService) Send(ctx context.Context, in RecommendIn) (*domain.Recommendation, error) {
	if in.FarmerID == "" {
		return nil, fmt.Errorf("farmer id is required: %w", domain.ErrInvalidInput)
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, fmt.Errorf("message is required: %w", domain.ErrInvalidInput)
	}
	if len(msg) > maxRecommendationLen {
		return nil, fmt.Errorf("message longer than %d bytes: %w", maxRecommendationLen, domain.ErrInvalidInput)
	}
	method := strings.ToLower(strings.TrimSpace(in.ContactMethod))
	if !contactMethods[method] {
		return nil, fmt.Errorf("contact method %q: %w", in.ContactMethod, domain.ErrInvalidInput)
	}

	farmer, err := s.farmers.GetByID(ctx, in.FarmerID)
	if err != nil {
		return nil, err
	}

	r := &domain.Recommendation{
		ID:               uuid.NewString(),
		FarmerID:         farmer.ID,
		FarmerName:       farmer.FullName,
		ResearchCenterID: in.ResearchCenterID,
		Message:          msg,
		ContactMethod:    method,
		Contact: domain.FarmerContact{
			Phone:    farmer.Phone,
			Email:    farmer.Email,
			WhatsApp: farmer.WhatsAppLink(),
		},
		SentAt: time.Now().UTC(),
	}

	if err := s.recommendations.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	metrics.RecommendationsTotal.WithLabelValues(method).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishRecommendation(ctx, r); err != nil {
			logging.FromContext(ctx).Warn("publish recommendation failed", "recommendation_id", r.ID, "error", err)
		}
	}

	return r, nil
}

// History returns the recommendations a farmer received, newest first.
func (s *RecommendationService) History(ctx context.Context, farmerID string, limit int) ([]domain.Recommendation, error) {
	if farmerID == "" {
		return nil, fmt.Errorf("farmer id is required: %w", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.recommendations.ListByFarmer(ctx, farmerID, limit)
}
