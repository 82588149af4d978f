package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// AdviceInput is the input for the treatment-advice workflow.
type AdviceInput struct {
	DetectionID string
	FarmerID    string
	Disease     string
	Location    domain.GeoPoint
}

// TreatmentAdviceWorkflow finds the pesticide shops nearest to a diseased
// detection and publishes them to the farmer. Shop lookup has no side effects,
// so a failed publish simply fails the workflow.
func TreatmentAdviceWorkflow(ctx workflow.Context, input AdviceInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting treatment advice workflow", "detectionID", input.DetectionID, "disease", input.Disease)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Find nearest pesticide shops
	var shops []domain.RankedEntity
	if err := workflow.ExecuteActivity(ctx, "FindTreatmentShops", input).Get(ctx, &shops); err != nil {
		return err
	}

	// Step 2: Publish advice
	advice := domain.TreatmentAdvice{
		DetectionID: input.DetectionID,
		FarmerID:    input.FarmerID,
		Disease:     input.Disease,
		Shops:       shops,
		IssuedAt:    workflow.Now(ctx).UTC(),
	}
	if err := workflow.ExecuteActivity(ctx, "PublishAdvice", advice).Get(ctx, nil); err != nil {
		logger.Warn("publishing advice failed", "error", err)
		return err
	}

	logger.Info("Treatment advice sent", "shops", len(shops))
	return nil
}
