package handler

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthStart_SetsCookiesAndRedirects(t *testing.T) {
	svc := &mockConnector{}
	svc.On("Begin").Return(&core.AuthRequest{
		URL:     "https://www.tiktok.com/v2/auth/authorize/?client_key=ck",
		State:   "state",
		Pending: model.PendingAuth{CSRF: "csrf-1", CodeVerifier: "verifier-1"},
	}, nil)
	h := NewOAuth(svc, false)

	rec := httptest.NewRecorder()
	h.Start(rec, newRequest(http.MethodGet, "/api/auth/tiktok/oauth", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://www.tiktok.com/v2/auth/authorize/?client_key=ck", rec.Header().Get("Location"))

	verifier := findCookie(rec, VerifierCookie)
	require.NotNil(t, verifier)
	assert.Equal(t, "verifier-1", verifier.Value)
	assert.True(t, verifier.HttpOnly)
	assert.True(t, verifier.Secure)
	assert.Equal(t, http.SameSiteLaxMode, verifier.SameSite)
	assert.Equal(t, 600, verifier.MaxAge)

	csrf := findCookie(rec, CSRFCookie)
	require.NotNil(t, csrf)
	assert.Equal(t, "csrf-1", csrf.Value)
}

func TestOAuthStart_DevModeCookiesNotSecure(t *testing.T) {
	svc := &mockConnector{}
	svc.On("Begin").Return(&core.AuthRequest{URL: "https://www.tiktok.com/v2/auth/authorize/"}, nil)
	h := NewOAuth(svc, true)

	rec := httptest.NewRecorder()
	h.Start(rec, newRequest(http.MethodGet, "/api/auth/tiktok/oauth", nil))

	require.NotNil(t, findCookie(rec, VerifierCookie))
	assert.False(t, findCookie(rec, VerifierCookie).Secure)
}

func TestOAuthStart_FailureRedirectsWithCode(t *testing.T) {
	svc := &mockConnector{}
	svc.On("Begin").Return(nil, errors.New("missing client key"))
	h := NewOAuth(svc, false)

	r := newRequest(http.MethodGet, "/api/auth/tiktok/oauth", nil)
	r.Host = "app.example.com"
	r.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.Start(rec, r)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/?error=oauth_init_error", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, VerifierCookie))
}

func TestOAuthCallback_LinkedRedirect(t *testing.T) {
	svc := &mockConnector{}
	h := NewOAuth(svc, false)

	profile := model.Profile{OpenID: "u1", DisplayName: "Alice"}
	svc.On("HandleCallback", mock.Anything, core.CallbackInput{
		Code:           "auth-code",
		State:          "st",
		CookieVerifier: "cookie-verifier",
		CookieCSRF:     "cookie-csrf",
		UserID:         "user-1",
	}).Return(&core.CallbackOutcome{Kind: core.OutcomeLinked, Profile: profile}, nil)

	r := newRequest(http.MethodGet, "/api/auth/tiktok/callback?code=auth-code&state=st", nil)
	r.Host = "app.example.com"
	r.Header.Set("X-Forwarded-Proto", "https")
	r.AddCookie(&http.Cookie{Name: VerifierCookie, Value: "cookie-verifier"})
	r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: "cookie-csrf"})
	r = withUser(r, "user-1")
	rec := httptest.NewRecorder()
	h.Callback(rec, r)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "https", loc.Scheme)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "/dashboard/accounts", loc.Path)
	assert.Equal(t, "tiktok_connected", loc.Query().Get("success"))

	raw, err := base64.RawURLEncoding.DecodeString(loc.Query().Get("profile"))
	require.NoError(t, err)
	var got model.Profile
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, profile, got)

	cleared := findCookie(rec, VerifierCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	svc.AssertExpectations(t)
}

func TestOAuthCallback_DeferredRedirect(t *testing.T) {
	svc := &mockConnector{}
	h := NewOAuth(svc, false)

	svc.On("HandleCallback", mock.Anything, mock.MatchedBy(func(in core.CallbackInput) bool {
		return in.UserID == ""
	})).Return(&core.CallbackOutcome{Kind: core.OutcomeDeferred, Profile: model.Profile{OpenID: "u1"}}, nil)

	r := newRequest(http.MethodGet, "/api/auth/tiktok/callback?code=c&state=s", nil)
	r.Host = "localhost:3000"
	rec := httptest.NewRecorder()
	h.Callback(rec, r)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http", loc.Scheme)
	assert.Equal(t, "/", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("pending_link"))
	assert.NotEmpty(t, loc.Query().Get("tiktok_profile"))
}

func TestOAuthCallback_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"missing params", &core.CallbackError{Stage: core.StageReceived, Code: core.CodeMissingParams}, "missing_params", ""},
		{"provider denied", &core.CallbackError{Stage: core.StageReceived, Code: core.CodeTikTokAuthError, Description: "access_denied: user cancelled"}, "tiktok_auth_error", "access_denied: user cancelled"},
		{"expired", &core.CallbackError{Stage: core.StageVerifierRecovered, Code: core.CodeStateExpired}, "state_expired", ""},
		{"untyped", errors.New("boom"), "token_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConnector{}
			svc.On("HandleCallback", mock.Anything, mock.Anything).Return(nil, tt.err)
			h := NewOAuth(svc, false)

			r := newRequest(http.MethodGet, "/api/auth/tiktok/callback", nil)
			r.Host = "app.example.com"
			rec := httptest.NewRecorder()
			h.Callback(rec, r)

			require.Equal(t, http.StatusFound, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/", loc.Path)
			assert.Equal(t, tt.code, loc.Query().Get("error"))
			assert.Equal(t, tt.message, loc.Query().Get("message"))
			assert.NotNil(t, findCookie(rec, CSRFCookie))
		})
	}
}

func TestRedirectBase(t *testing.T) {
	tests := []struct {
		name    string
		proto   string
		fwdHost string
		tls     bool
		want    string
	}{
		{"plain", "", "", false, "http://app.example.com"},
		{"tls", "", "", true, "https://app.example.com"},
		{"forwarded proto", "https", "", false, "https://app.example.com"},
		{"first of several protos", "https, http", "", false, "https://app.example.com"},
		{"unknown proto ignored", "javascript", "", true, "https://app.example.com"},
		{"forwarded host ignored", "https", "evil.example.net", false, "https://app.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/auth/tiktok/callback", nil)
			r.Host = "app.example.com"
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			if tt.fwdHost != "" {
				r.Header.Set("X-Forwarded-Host", tt.fwdHost)
			}
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			} else {
				r.TLS = nil
			}
			assert.Equal(t, tt.want, redirectBase(r))
		})
	}
}
