package workflows

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// AdviceStarter starts TreatmentAdviceWorkflow runs on a Temporal cluster.
type AdviceStarter struct {
	client    client.Client
	taskQueue string
}

// NewAdviceStarter creates an AdviceStarter bound to a task queue.
func NewAdviceStarter(c client.Client, taskQueue string) *AdviceStarter {
	return &AdviceStarter{client: c, taskQueue: taskQueue}
}

// StartAdvice starts one workflow per detection; the detection ID keys the run.
// Starting a detection that already has a run is not an error.
func (s *AdviceStarter) StartAdvice(ctx context.Context, d *domain.Detection) error {
	if d.Location == nil {
		return fmt.Errorf("detection %s has no location", d.ID)
	}

	opts := client.StartWorkflowOptions{
		ID:                    "treatment-advice-" + d.ID,
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	input := AdviceInput{
		DetectionID: d.ID,
		FarmerID:    d.FarmerID,
		Disease:     d.Disease,
		Location:    *d.Location,
	}

	_, err := s.client.ExecuteWorkflow(ctx, opts, TreatmentAdviceWorkflow, input)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start treatment advice: %w", err)
	}
	return nil
}
