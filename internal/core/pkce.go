package core

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/platform"
)

// PKCE is one authorization attempt's verifier, challenge and CSRF token.
type PKCE struct {
	Verifier  string
	Challenge string
	CSRF      string
}

// NewPKCE generates a 32-byte base64url verifier, its S256 challenge and an
// independent CSRF token.
func NewPKCE() PKCE {
	verifier := oauth2.GenerateVerifier()
	return PKCE{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		CSRF:      platform.NewToken(16),
	}
}

// Pending returns the state payload for this attempt stamped with now.
func (p PKCE) Pending(now time.Time) model.PendingAuth {
	return model.PendingAuth{
		CSRF:         p.CSRF,
		CodeVerifier: p.Verifier,
		Timestamp:    now.UnixMilli(),
	}
}

// EncodeState packs the pending state as base64url JSON for the OAuth state
// parameter.
func EncodeState(p model.PendingAuth) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var errUndecodableState = errors.New("state is not an encoded payload")

// DecodeState reverses EncodeState. Standard and padded encodings are
// accepted since proxies sometimes rewrite the parameter.
func DecodeState(raw string) (*model.PendingAuth, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errUndecodableState
	}

	encodings := []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.StdEncoding,
	}
	for _, enc := range encodings {
		b, err := enc.DecodeString(raw)
		if err != nil {
			continue
		}
		var p model.PendingAuth
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", errUndecodableState, err)
		}
		return &p, nil
	}
	return nil, errUndecodableState
}
