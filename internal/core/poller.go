package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type jobPoller interface {
	PollJob(ctx context.Context, publishID string) (*model.PublishStatus, error)
	MarkTimedOut(ctx context.Context, publishID string) error
}

// Poller checks a publish job every Interval until it is terminal, the
// context is cancelled, or MaxAttempts polls have been made. A job that runs
// out of attempts ends as timed_out.
type Poller struct {
	status      jobPoller
	interval    time.Duration
	maxAttempts int
}

func NewPoller(status jobPoller, interval time.Duration, maxAttempts int) *Poller {
	return &Poller{status: status, interval: interval, maxAttempts: maxAttempts}
}

// Run blocks until the job settles. A cancelled context returns ctx.Err().
func (p *Poller) Run(ctx context.Context, publishID string) (*model.PublishStatus, error) {
	logger := zerolog.Ctx(ctx).With().Str("publish_id", publishID).Logger()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		st, err := p.status.PollJob(ctx, publishID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("publish status check failed")
		case st.Terminal():
			return st, nil
		}

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	if err := p.status.MarkTimedOut(ctx, publishID); err != nil {
		return nil, err
	}
	return &model.PublishStatus{PublishID: publishID, Status: model.PublishStatusTimedOut}, nil
}

// LocalWatcher runs a Poller in a goroutine per job. Stop cancels all
// pollers and waits for them to return.
type LocalWatcher struct {
	poller *Poller
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalWatcher creates a watcher whose pollers inherit base's logger and
// end when base is cancelled or Stop is called.
func NewLocalWatcher(base context.Context, poller *Poller) *LocalWatcher {
	ctx, cancel := context.WithCancel(base)
	return &LocalWatcher{poller: poller, ctx: ctx, cancel: cancel}
}

func (w *LocalWatcher) Watch(ctx context.Context, job *model.PublishJob) error {
	logger := zerolog.Ctx(ctx).With().Str("publish_id", job.PublishID).Logger()
	runCtx := logger.WithContext(w.ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		st, err := w.poller.Run(runCtx, job.PublishID)
		if err != nil {
			logger.Debug().Err(err).Msg("publish watcher stopped")
			return
		}
		logger.Info().Str("status", st.Status).Msg("publish watcher finished")
	}()
	return nil
}

func (w *LocalWatcher) Stop() {
	w.cancel()
	w.wg.Wait()
}
