package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

// ErrTypeJobNotFound marks a poll for a publish job that no longer exists.
const ErrTypeJobNotFound = "JOB_NOT_FOUND"

type statusChecker interface {
	PollJob(ctx context.Context, publishID string) (*model.PublishStatus, error)
	MarkTimedOut(ctx context.Context, publishID string) error
}

// PublishWatch contains the activities behind the publish watch workflow.
type PublishWatch struct {
	status statusChecker
}

func NewPublishWatch(status statusChecker) *PublishWatch {
	return &PublishWatch{status: status}
}

// CheckPublishStatus polls the provider once for publishID and stores a
// terminal outcome. A missing job fails without retry.
func (a *PublishWatch) CheckPublishStatus(ctx context.Context, publishID string) (*model.PublishStatus, error) {
	st, err := a.status.PollJob(ctx, publishID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, temporal.NewNonRetryableApplicationError("publish job not found", ErrTypeJobNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// MarkPublishTimedOut ends a job that exhausted its polls.
func (a *PublishWatch) MarkPublishTimedOut(ctx context.Context, publishID string) error {
	return a.status.MarkTimedOut(ctx, publishID)
}
