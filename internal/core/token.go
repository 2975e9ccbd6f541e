package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// RefreshWindow is how close to expiry an access token may get before it is
// refreshed.
const RefreshWindow = 300 * time.Second

// refreshTimeout bounds a shared refresh, which is detached from the caller
// that started it.
const refreshTimeout = 30 * time.Second

type tokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*model.Token, error)
}

// TokenService hands out access tokens that are valid for at least
// RefreshWindow. Refreshes of one account are collapsed into a single
// provider call per process.
type TokenService struct {
	accounts *AccountService
	provider tokenRefresher
	group    singleflight.Group
	now      func() time.Time
}

func NewTokenService(accounts *AccountService, provider tokenRefresher) *TokenService {
	return &TokenService{
		accounts: accounts,
		provider: provider,
		now:      time.Now,
	}
}

// EnsureValidAccessToken returns a usable access token for acct, refreshing
// it first when it expires within RefreshWindow. On success acct is updated
// in place. A refresh rejected by the provider marks the account and returns
// ErrReauthRequired; transport and server failures are returned wrapped and
// leave the account untouched.
func (s *TokenService) EnsureValidAccessToken(ctx context.Context, acct *model.ConnectedAccount) (string, error) {
	if acct.ReauthRequired {
		return "", ErrReauthRequired
	}
	if !acct.ExpiresWithin(s.now(), RefreshWindow) {
		return acct.AccessToken, nil
	}

	accountID, refreshToken := acct.ID, acct.RefreshToken
	ch := s.group.DoChan(accountID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(rctx, accountID, refreshToken)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", res.Err
	}

	tok := res.Val.(*model.Token)
	zerolog.Ctx(ctx).Debug().Str("account_id", acct.ID).Bool("shared", res.Shared).Msg("access token refreshed")

	acct.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		acct.RefreshToken = tok.RefreshToken
	}
	acct.TokenExpiresAt = tok.ExpiresAt(s.now())
	return tok.AccessToken, nil
}

func (s *TokenService) refresh(ctx context.Context, accountID, refreshToken string) (*model.Token, error) {
	logger := zerolog.Ctx(ctx).With().Str("account_id", accountID).Str("stage", "token_refresh").Logger()

	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("missing_refresh_token").Inc()
		logger.Warn().Msg("access token expiring and no refresh token stored")
		s.markReauth(ctx, accountID)
		return nil, ErrReauthRequired
	}

	tok, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		// A sibling process may have rotated the refresh token first, which
		// invalidates ours. Prefer its result over forcing a reconnect.
		if stored, getErr := s.accounts.Get(ctx, accountID); getErr == nil &&
			stored.RefreshToken != refreshToken && !stored.ExpiresWithin(s.now(), RefreshWindow) {
			metrics.TokenRefreshes.WithLabelValues("superseded").Inc()
			return &model.Token{
				AccessToken:  stored.AccessToken,
				RefreshToken: stored.RefreshToken,
				ExpiresIn:    int64(stored.TokenExpiresAt.Sub(s.now()) / time.Second),
			}, nil
		}

		if !refreshRejected(err) {
			metrics.TokenRefreshes.WithLabelValues("failed").Inc()
			logger.Warn().Err(err).Msg("token refresh failed")
			return nil, fmt.Errorf("refresh access token: %w", err)
		}

		metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		logger.Warn().Err(err).Msg("refresh token rejected, account requires reauthorization")
		s.markReauth(ctx, accountID)
		return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	if err := s.accounts.UpdateTokens(ctx, accountID, tok, tok.ExpiresAt(s.now())); err != nil {
		logger.Error().Err(err).Msg("failed to persist refreshed tokens")
	}
	return tok, nil
}

// refreshRejected reports whether the provider refused the refresh token
// itself. Transport errors, timeouts, rate limits and server errors are not
// rejections.
func refreshRejected(err error) bool {
	pe, ok := tiktok.AsProviderError(err)
	if !ok {
		return false
	}
	switch pe.Kind {
	case tiktok.KindInvalidGrant, tiktok.KindAccessTokenInvalid:
		return true
	case tiktok.KindRateLimited:
		return false
	}
	switch pe.HTTPStatus {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func (s *TokenService) markReauth(ctx context.Context, accountID string) {
	if err := s.accounts.MarkReauthRequired(ctx, accountID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("account_id", accountID).Msg("failed to mark account for reauthorization")
	}
}

// IsReauthRequired reports whether err means the user must reconnect.
func IsReauthRequired(err error) bool {
	return errors.Is(err, ErrReauthRequired)
}
