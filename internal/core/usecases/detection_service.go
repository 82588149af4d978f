package usecases

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
	"github.com/paddymap/paddymap/internal/pkg/logging"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
	"github.com/paddymap/paddymap/internal/pkg/telemetry"
)

var allowedImageExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// DetectIn is one leaf image submitted by a farmer.
type DetectIn struct {
	FarmerID string
	Filename string
	Image    io.Reader
	Location *domain.GeoPoint
}

// DetectionService classifies leaf images and records the results.
type DetectionService struct {
	detections ports.DetectionRepository
	classifier ports.Classifier
	publisher  ports.EventPublisher
	advice     ports.AdviceStarter
}

// NewDetectionService creates a new DetectionService. publisher and advice may be nil.
func NewDetectionService(
	detections ports.DetectionRepository,
	classifier ports.Classifier,
	publisher ports.EventPublisher,
	advice ports.AdviceStarter,
) *DetectionService {
	return &DetectionService{
		detections: detections,
		classifier: classifier,
		publisher:  publisher,
		advice:     advice,
	}
}

// Detect classifies the image, stores the detection, and notifies listeners.
// Publishing and treatment advice are best effort.
func (s *DetectionService) Detect(ctx context.Context, in DetectIn) (*domain.Detection, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "DetectionService.Detect")
	defer span.End()

	if in.FarmerID == "" {
		return nil, fmt.Errorf("farmer id is required: %w", domain.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !allowedImageExt[ext] {
		return nil, fmt.Errorf("file type %q: %w", ext, domain.ErrUnsupportedImage)
	}
	if in.Image == nil {
		return nil, fmt.Errorf("empty image: %w", domain.ErrUnsupportedImage)
	}
	img := bufio.NewReader(in.Image)
	if _, err := img.Peek(1); err != nil {
		return nil, fmt.Errorf("empty image: %w", domain.ErrUnsupportedImage)
	}
	if in.Location != nil {
		if err := geospatial.ValidatePoint(*in.Location); err != nil {
			return nil, err
		}
	}

	log := logging.FromContext(ctx)

	verdict, err := s.classifier.Classify(ctx, filepath.Base(in.Filename), img)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("classify image: %w", err)
	}
	span.SetAttributes(
		attribute.String("detection.disease", verdict.Disease),
		attribute.Bool("detection.healthy", verdict.Healthy),
	)

	d := &domain.Detection{
		ID:         uuid.NewString(),
		FarmerID:   in.FarmerID,
		ImageName:  filepath.Base(in.Filename),
		Disease:    verdict.Disease,
		Confidence: verdict.Confidence,
		Healthy:    verdict.Healthy,
		Location:   in.Location,
		DetectedAt: time.Now().UTC(),
	}

	if !d.Healthy {
		treatment, err := s.detections.Treatment(ctx, d.Disease)
		if err != nil {
			log.Warn("treatment lookup failed", "disease", d.Disease, "error", err)
		}
		d.Treatment = treatment
	}

	if err := s.detections.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("insert detection: %w", err)
	}
	metrics.DetectionsTotal.WithLabelValues(d.Disease).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishDetection(ctx, d); err != nil {
			log.Warn("publish detection failed", "detection_id", d.ID, "error", err)
		}
	}

	if s.advice != nil && !d.Healthy && d.Location != nil {
		if err := s.advice.StartAdvice(ctx, d); err != nil {
			log.Warn("start treatment advice failed", "detection_id", d.ID, "error", err)
		}
	}

	return d, nil
}

// History returns a farmer's most recent detections.
func (s *DetectionService) History(ctx context.Context, farmerID string, limit int) ([]domain.Detection, error) {
	if farmerID == "" {
		return nil, fmt.Errorf("farmer id is required: %w", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.detections.ListByFarmer(ctx, farmerID, limit)
}

// Stats aggregates all detections.
func (s *DetectionService) Stats(ctx context.Context) (*domain.DetectionStats, error) {
	return s.detections.Stats(ctx)
}
