package core

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

const CreatorInfoTTL = 60 * time.Second

// CreatorInfoService answers creator-info queries, caching each account's
// answer for CreatorInfoTTL.
type CreatorInfoService struct {
	accounts *AccountService
	tokens   *TokenService
	provider Provider
	cache    *ttlcache.Cache[string, *model.CreatorInfo]
}

func NewCreatorInfoService(accounts *AccountService, tokens *TokenService, provider Provider, cache *ttlcache.Cache[string, *model.CreatorInfo]) *CreatorInfoService {
	return &CreatorInfoService{accounts: accounts, tokens: tokens, provider: provider, cache: cache}
}

// NewCreatorInfoCache builds the cache for NewCreatorInfoService. The caller
// runs Start and Stop.
func NewCreatorInfoCache() *ttlcache.Cache[string, *model.CreatorInfo] {
	return ttlcache.New[string, *model.CreatorInfo](
		ttlcache.WithTTL[string, *model.CreatorInfo](CreatorInfoTTL),
		ttlcache.WithDisableTouchOnHit[string, *model.CreatorInfo](),
	)
}

// Get returns creator info for an account userID owns.
func (s *CreatorInfoService) Get(ctx context.Context, userID, accountID string) (*model.CreatorInfo, error) {
	acct, err := s.accounts.GetForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return s.forAccount(ctx, acct)
}

func (s *CreatorInfoService) forAccount(ctx context.Context, acct *model.ConnectedAccount) (*model.CreatorInfo, error) {
	if item := s.cache.Get(acct.ID); item != nil {
		return item.Value(), nil
	}

	token, err := s.tokens.EnsureValidAccessToken(ctx, acct)
	if err != nil {
		return nil, err
	}
	info, err := s.provider.QueryCreatorInfo(ctx, token)
	if err != nil {
		return nil, classifyProviderError(ctx, s.tokens, acct, err)
	}
	s.cache.Set(acct.ID, info, ttlcache.DefaultTTL)

	if acct.Username == "" && info.CreatorUsername != "" {
		if err := s.accounts.UpdateUsername(ctx, acct.ID, info.CreatorUsername); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", acct.ID).Msg("failed to store creator username")
		} else {
			acct.Username = info.CreatorUsername
		}
	}
	return info, nil
}

// Invalidate drops the cached answer for an account.
func (s *CreatorInfoService) Invalidate(accountID string) {
	s.cache.Delete(accountID)
}
