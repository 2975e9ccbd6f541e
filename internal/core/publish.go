package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// Watcher follows a publish job until it reaches a terminal status.
type Watcher interface {
	Watch(ctx context.Context, job *model.PublishJob) error
}

type PublishInput struct {
	UserID    string
	AccountID string
	VideoURL  string
	ContentID *string
	PostInfo  model.PostInfo
}

type PublishResult struct {
	PublishID    string   `json:"publish_id"`
	PrivacyLevel string   `json:"privacy_level"`
	Warnings     []string `json:"warnings"`
}

type PublishService struct {
	accounts *AccountService
	tokens   *TokenService
	creators *CreatorInfoService
	provider Provider
	jobs     *JobStore
	watcher  Watcher
}

func NewPublishService(accounts *AccountService, tokens *TokenService, creators *CreatorInfoService, provider Provider, jobs *JobStore, watcher Watcher) *PublishService {
	return &PublishService{
		accounts: accounts,
		tokens:   tokens,
		creators: creators,
		provider: provider,
		jobs:     jobs,
		watcher:  watcher,
	}
}

// Publish validates ownership and post settings, refreshes the token when
// needed and starts a pull-from-URL direct post.
func (s *PublishService) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	acct, err := s.accounts.GetForUser(ctx, in.AccountID, in.UserID)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().Str("account_id", acct.ID).Str("stage", "publish_init").Logger()

	token, err := s.tokens.EnsureValidAccessToken(ctx, acct)
	if err != nil {
		return nil, err
	}

	info := in.PostInfo
	result := &PublishResult{Warnings: []string{}}

	if info.Promotional() && info.PrivacyLevel == model.PrivacySelfOnly {
		var options []string
		if ci, err := s.creators.forAccount(ctx, acct); err == nil {
			options = ci.PrivacyLevelOptions
		} else {
			logger.Warn().Err(err).Msg("creator info unavailable, assuming public posting is allowed")
		}
		level, ok := MostOpenPrivacy(options)
		if !ok {
			return nil, ErrPrivacyConflict
		}
		info.PrivacyLevel = level
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Branded content cannot be private. Visibility was changed from %s to %s.", model.PrivacySelfOnly, level))
	}

	publishID, err := s.provider.InitPublish(ctx, token, tiktok.NewPublishRequest(in.VideoURL, info))
	if err != nil {
		return nil, classifyProviderError(ctx, s.tokens, acct, err)
	}
	result.PublishID = publishID
	result.PrivacyLevel = info.PrivacyLevel
	logger.Info().Str("publish_id", publishID).Str("privacy_level", info.PrivacyLevel).Msg("publish started")

	job := &model.PublishJob{
		PublishID: publishID,
		AccountID: acct.ID,
		UserID:    in.UserID,
		ContentID: in.ContentID,
		Status:    model.PublishStatusSent,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		logger.Error().Err(err).Str("publish_id", publishID).Msg("failed to store publish job")
		return result, nil
	}
	if s.watcher != nil {
		if err := s.watcher.Watch(ctx, job); err != nil {
			logger.Error().Err(err).Str("publish_id", publishID).Msg("failed to start publish watcher")
		}
	}
	return result, nil
}

// MostOpenPrivacy picks the most open non-private level among options. An
// empty option list means the creator's constraints are unknown and public
// posting is assumed.
func MostOpenPrivacy(options []string) (string, bool) {
	if len(options) == 0 {
		return model.PrivacyPublicToEveryone, true
	}
	for _, level := range model.PrivacyOpenness {
		if level == model.PrivacySelfOnly {
			break
		}
		if slices.Contains(options, level) {
			return level, true
		}
	}
	return "", false
}

// classifyProviderError turns a rejected access token into ErrReauthRequired
// and passes everything else through.
func classifyProviderError(ctx context.Context, tokens *TokenService, acct *model.ConnectedAccount, err error) error {
	if tiktok.IsKind(err, tiktok.KindAccessTokenInvalid) {
		tokens.markReauth(ctx, acct.ID)
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	return err
}
