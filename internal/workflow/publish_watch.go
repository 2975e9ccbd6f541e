package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

const (
	defaultWatchInterval    = 10 * time.Second
	defaultWatchMaxAttempts = 60
)

// WatchPublishWorkflow polls a publish job until the provider reports a
// terminal status. After MaxAttempts polls the job is marked timed_out.
func WatchPublishWorkflow(ctx workflow.Context, params model.WatchPublishParams) (*model.PublishStatus, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	interval := params.Interval
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultWatchMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var st model.PublishStatus
		err := workflow.ExecuteActivity(ctx, "CheckPublishStatus", params.PublishID).Get(ctx, &st)
		if err != nil {
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) && appErr.NonRetryable() {
				return nil, err
			}
			logger.Warn("publish status check failed", "publishID", params.PublishID, "attempt", attempt, "error", err)
		} else if st.Terminal() {
			logger.Info("publish reached terminal status", "publishID", params.PublishID, "status", st.Status)
			return &st, nil
		}

		if attempt < maxAttempts {
			if err := workflow.Sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
	}

	if err := workflow.ExecuteActivity(ctx, "MarkPublishTimedOut", params.PublishID).Get(ctx, nil); err != nil {
		return nil, err
	}
	logger.Warn("publish status polling timed out", "publishID", params.PublishID, "attempts", maxAttempts)
	return &model.PublishStatus{PublishID: params.PublishID, Status: model.PublishStatusTimedOut}, nil
}
