package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

const WatchPublishWorkflowName = "WatchPublishWorkflow"

// TemporalWatcher hands publish jobs to WatchPublishWorkflow on the worker.
type TemporalWatcher struct {
	tc          temporalclient.Client
	taskQueue   string
	interval    time.Duration
	maxAttempts int
}

func NewTemporalWatcher(tc temporalclient.Client, taskQueue string, interval time.Duration, maxAttempts int) *TemporalWatcher {
	return &TemporalWatcher{tc: tc, taskQueue: taskQueue, interval: interval, maxAttempts: maxAttempts}
}

func (w *TemporalWatcher) Watch(ctx context.Context, job *model.PublishJob) error {
	_, err := w.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("publish-watch-%s", job.PublishID),
		TaskQueue: w.taskQueue,
	}, WatchPublishWorkflowName, model.WatchPublishParams{
		PublishID:   job.PublishID,
		Interval:    w.interval,
		MaxAttempts: w.maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("start publish watch workflow: %w", err)
	}
	return nil
}
