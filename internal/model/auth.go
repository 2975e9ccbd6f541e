package model

import "time"

const PendingAuthTTL = 10 * time.Minute

// PendingAuth is the ephemeral authorization state carried in the OAuth
// state parameter and the short-lived cookies. Timestamp is unix millis.
type PendingAuth struct {
	CSRF         string `json:"csrf"`
	CodeVerifier string `json:"codeVerifier"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

// Expired reports whether the state is older than PendingAuthTTL. A state
// without a timestamp cannot prove its age and counts as expired.
func (p *PendingAuth) Expired(now time.Time) bool {
	if p.Timestamp == 0 {
		return true
	}
	return now.Sub(time.UnixMilli(p.Timestamp)) > PendingAuthTTL
}

// Session is the authenticated application user behind a request.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}
