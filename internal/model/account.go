package model

import "time"

const ProviderTikTok = "tiktok"

// ConnectedAccount is one linked external social account. Token fields hold
// plaintext in memory; the store encrypts them at rest.
type ConnectedAccount struct {
	ID                string         `json:"id" db:"id"`
	UserID            string         `json:"user_id" db:"user_id"`
	Provider          string         `json:"provider" db:"provider"`
	ProviderAccountID string         `json:"provider_account_id" db:"provider_account_id"`
	Username          string         `json:"username" db:"username"`
	DisplayName       string         `json:"display_name" db:"display_name"`
	ProfilePicture    string         `json:"profile_picture" db:"profile_picture"`
	AccessToken       string         `json:"-" db:"access_token"`
	RefreshToken      string         `json:"-" db:"refresh_token"`
	TokenExpiresAt    time.Time      `json:"token_expires_at" db:"token_expires_at"`
	Scope             string         `json:"scope" db:"scope"`
	Metadata          map[string]any `json:"metadata,omitempty" db:"metadata"`
	ReauthRequired    bool           `json:"reauth_required" db:"reauth_required"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// ExpiresWithin reports whether the access token expires less than window
// after now.
func (a *ConnectedAccount) ExpiresWithin(now time.Time, window time.Duration) bool {
	return a.TokenExpiresAt.Sub(now) < window
}

// ProfileURL is the public TikTok profile page for the account.
func (a *ConnectedAccount) ProfileURL() string {
	return ProfileURL(a.Username)
}

func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return "https://www.tiktok.com/@" + username
}

// Profile is the user-info snapshot fetched after the token exchange.
type Profile struct {
	OpenID       string `json:"open_id"`
	UnionID      string `json:"union_id,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	AvatarURL100 string `json:"avatar_url_100,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Placeholder  bool   `json:"placeholder,omitempty"`
}

// Avatar prefers the full-size avatar.
func (p *Profile) Avatar() string {
	if p.AvatarURL != "" {
		return p.AvatarURL
	}
	return p.AvatarURL100
}

// Token is a token endpoint response.
type Token struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}

// ExpiresAt converts the relative expiry to an absolute time.
func (t *Token) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}
