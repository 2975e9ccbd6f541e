package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token" validate:"required"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in" validate:"gt=0"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}

func (t *tokenResponse) token() *model.Token {
	return &model.Token{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		ExpiresIn:        t.ExpiresIn,
		RefreshExpiresIn: t.RefreshExpiresIn,
		OpenID:           t.OpenID,
		Scope:            t.Scope,
		TokenType:        t.TokenType,
	}
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.Token, error) {
	form := url.Values{
		"client_key":    {c.clientKey},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {c.redirectURI},
		"code_verifier": {codeVerifier},
	}

	var resp tokenResponse
	if err := c.postForm(ctx, "token_exchange", tokenPath, form, &resp); err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return resp.token(), nil
}

// RefreshToken mints a new access token from a refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*model.Token, error) {
	form := url.Values{
		"client_key":    {c.clientKey},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	var resp tokenResponse
	if err := c.postForm(ctx, "token_refresh", tokenPath, form, &resp); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return resp.token(), nil
}

// RevokeToken invalidates an access token at the provider.
func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{
		"client_key":    {c.clientKey},
		"client_secret": {c.clientSecret},
		"token":         {accessToken},
	}
	if err := c.postForm(ctx, "token_revoke", revokePath, form, nil); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

type userInfoData struct {
	User struct {
		OpenID       string `json:"open_id" validate:"required"`
		UnionID      string `json:"union_id"`
		AvatarURL    string `json:"avatar_url"`
		AvatarURL100 string `json:"avatar_url_100"`
		DisplayName  string `json:"display_name"`
		Username     string `json:"username"`
	} `json:"user"`
}

// FetchUser returns the profile of the token's owner.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*model.Profile, error) {
	u := c.baseURL + userInfoPath + "?" + url.Values{"fields": {UserInfoFields}}.Encode()

	var data userInfoData
	if err := c.doAPI(ctx, "user_info", http.MethodGet, u, accessToken, nil, &data); err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	return &model.Profile{
		OpenID:       data.User.OpenID,
		UnionID:      data.User.UnionID,
		AvatarURL:    data.User.AvatarURL,
		AvatarURL100: data.User.AvatarURL100,
		DisplayName:  data.User.DisplayName,
		Username:     data.User.Username,
	}, nil
}
