package core

import (
	"context"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// Provider is the TikTok API surface the services depend on. *tiktok.Client
// implements it.
type Provider interface {
	AuthorizeURL(state, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*model.Token, error)
	RevokeToken(ctx context.Context, accessToken string) error
	FetchUser(ctx context.Context, accessToken string) (*model.Profile, error)
	InitPublish(ctx context.Context, accessToken string, req tiktok.PublishRequest) (string, error)
	FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*tiktok.StatusResponse, error)
	QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorInfo, error)
}

var _ Provider = (*tiktok.Client)(nil)
