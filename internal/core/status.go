package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// StatusService polls publish jobs and records their terminal outcome.
type StatusService struct {
	accounts *AccountService
	tokens   *TokenService
	provider Provider
	jobs     *JobStore
}

func NewStatusService(accounts *AccountService, tokens *TokenService, provider Provider, jobs *JobStore) *StatusService {
	return &StatusService{accounts: accounts, tokens: tokens, provider: provider, jobs: jobs}
}

// MapProviderStatus translates a provider status into a publish status.
// Unrecognized statuses count as still processing.
func MapProviderStatus(resp *tiktok.StatusResponse, username string) model.PublishStatus {
	out := model.PublishStatus{ProviderStatus: resp.Status}
	switch resp.Status {
	case tiktok.StatusPublishComplete, tiktok.StatusPublished:
		out.Status = model.PublishStatusPublished
		out.ProfileURL = model.ProfileURL(username)
	case tiktok.StatusFailed:
		out.Status = model.PublishStatusFailed
		out.FailReason = resp.FailReason
	default:
		out.Status = model.PublishStatusProcessing
	}
	return out
}

// Check polls publishID on behalf of userID, who must own accountID. A job
// already in a terminal state is answered from the store without asking
// the provider again.
func (s *StatusService) Check(ctx context.Context, userID, accountID, publishID string) (*model.PublishStatus, error) {
	acct, err := s.accounts.GetForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Get(ctx, publishID)
	switch {
	case errors.Is(err, ErrNotFound):
		job = nil
	case err != nil:
		return nil, err
	case job.AccountID != acct.ID:
		return nil, ErrNotFound
	}

	if job != nil && model.IsTerminalPublishStatus(job.Status) {
		return storedStatus(job, acct), nil
	}
	return s.poll(ctx, acct, publishID, job)
}

// PollJob polls a stored job without an ownership check. Used by the
// background watchers. Reauthorization is reported as a terminal status,
// not an error.
func (s *StatusService) PollJob(ctx context.Context, publishID string) (*model.PublishStatus, error) {
	job, err := s.jobs.Get(ctx, publishID)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.Get(ctx, job.AccountID)
	if errors.Is(err, ErrNotFound) {
		// Account disconnected mid-publish.
		return s.finish(ctx, job, nil, model.PublishStatus{PublishID: publishID, Status: model.PublishStatusReauthRequired}), nil
	}
	if err != nil {
		return nil, err
	}

	if model.IsTerminalPublishStatus(job.Status) {
		return storedStatus(job, acct), nil
	}

	st, err := s.poll(ctx, acct, publishID, job)
	if errors.Is(err, ErrReauthRequired) && st != nil {
		return st, nil
	}
	return st, err
}

// MarkTimedOut ends a job that never reached a terminal status.
func (s *StatusService) MarkTimedOut(ctx context.Context, publishID string) error {
	won, err := s.jobs.Complete(ctx, publishID, model.PublishStatusTimedOut, "")
	if err != nil {
		return err
	}
	if won {
		metrics.PublishOutcomes.WithLabelValues(model.PublishStatusTimedOut).Inc()
		zerolog.Ctx(ctx).Warn().Str("publish_id", publishID).Msg("publish status polling timed out")
	}
	return nil
}

func (s *StatusService) poll(ctx context.Context, acct *model.ConnectedAccount, publishID string, job *model.PublishJob) (*model.PublishStatus, error) {
	logger := zerolog.Ctx(ctx).With().Str("account_id", acct.ID).Str("publish_id", publishID).Logger()
	reauth := model.PublishStatus{PublishID: publishID, Status: model.PublishStatusReauthRequired}

	token, err := s.tokens.EnsureValidAccessToken(ctx, acct)
	if err != nil {
		if IsReauthRequired(err) {
			return s.finish(ctx, job, acct, reauth), err
		}
		return nil, err
	}

	resp, err := s.provider.FetchPublishStatus(ctx, token, publishID)
	if err != nil {
		if tiktok.IsKind(err, tiktok.KindAccessTokenInvalid) {
			logger.Warn().Err(err).Msg("status check rejected access token")
			s.tokens.markReauth(ctx, acct.ID)
			return s.finish(ctx, job, acct, reauth), fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		return nil, fmt.Errorf("check publish status: %w", err)
	}

	st := MapProviderStatus(resp, acct.Username)
	st.PublishID = publishID

	if !st.Terminal() {
		if job != nil {
			if err := s.jobs.RecordAttempt(ctx, publishID); err != nil {
				logger.Warn().Err(err).Msg("failed to record publish poll attempt")
			}
		}
		return &st, nil
	}
	return s.finish(ctx, job, acct, st), nil
}

// finish writes a terminal status back. Persistence failures are logged; the
// caller still gets the status the provider reported.
func (s *StatusService) finish(ctx context.Context, job *model.PublishJob, acct *model.ConnectedAccount, st model.PublishStatus) *model.PublishStatus {
	logger := zerolog.Ctx(ctx).With().Str("publish_id", st.PublishID).Str("status", st.Status).Logger()
	if job == nil {
		logger.Info().Msg("publish reached terminal status")
		return &st
	}

	won, err := s.jobs.Complete(ctx, job.PublishID, st.Status, st.FailReason)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store publish outcome")
		return &st
	}
	if !won {
		return &st
	}

	metrics.PublishOutcomes.WithLabelValues(st.Status).Inc()
	logger.Info().Str("fail_reason", st.FailReason).Msg("publish reached terminal status")

	if st.Status == model.PublishStatusPublished && job.ContentID != nil && acct != nil {
		if err := s.jobs.MarkContentPublished(ctx, *job.ContentID, job.UserID, st.ProfileURL); err != nil {
			logger.Error().Err(err).Str("content_id", *job.ContentID).Msg("failed to write back published content")
		}
	}
	return &st
}

func storedStatus(job *model.PublishJob, acct *model.ConnectedAccount) *model.PublishStatus {
	st := &model.PublishStatus{PublishID: job.PublishID, Status: job.Status}
	if job.FailReason != nil {
		st.FailReason = *job.FailReason
	}
	if job.Status == model.PublishStatusPublished {
		st.ProfileURL = acct.ProfileURL()
	}
	return st
}
