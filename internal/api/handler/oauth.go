package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	mw "github.com/viewstodownloads/tiktok-connect/internal/api/middleware"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

// Cookies holding the pending authorization between the redirect and the
// callback.
const (
	VerifierCookie = "tiktok_code_verifier"
	CSRFCookie     = "tiktok_csrf_state"
)

type connector interface {
	Begin() (*core.AuthRequest, error)
	HandleCallback(ctx context.Context, in core.CallbackInput) (*core.CallbackOutcome, error)
}

// OAuth serves the TikTok authorization redirect and callback.
type OAuth struct {
	svc           connector
	secureCookies bool
}

// NewOAuth creates the handler. Cookies are marked Secure unless devMode is
// set.
func NewOAuth(svc connector, devMode bool) *OAuth {
	return &OAuth{svc: svc, secureCookies: !devMode}
}

// Start godoc
//
//	@Summary		Start TikTok authorization
//	@Description	Generates a PKCE verifier and CSRF token, stores both in short-lived HttpOnly cookies and redirects the browser to TikTok's consent screen. On failure the browser is sent back to the app with error=oauth_init_error.
//	@Tags			OAuth
//	@Success		302 "Redirect to the TikTok consent screen"
//	@Router			/auth/tiktok/oauth [get]
func (h *OAuth) Start(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Begin()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to start tiktok authorization")
		http.Redirect(w, r, redirectBase(r)+"/?error="+core.CodeOAuthInitError, http.StatusFound)
		return
	}

	maxAge := int(model.PendingAuthTTL.Seconds())
	http.SetCookie(w, h.cookie(VerifierCookie, req.Pending.CodeVerifier, maxAge))
	http.SetCookie(w, h.cookie(CSRFCookie, req.Pending.CSRF, maxAge))
	http.Redirect(w, r, req.URL, http.StatusFound)
}

// Callback godoc
//
//	@Summary		Complete TikTok authorization
//	@Description	Validates the state, exchanges the code for tokens and links the account to the signed-in user. Without a session the profile is handed back with pending_link=true. Every outcome is a redirect into the app; failures carry an error code in the query string.
//	@Tags			OAuth
//	@Param			code				query	string	false	"Authorization code"
//	@Param			state				query	string	false	"State issued by the start endpoint"
//	@Param			error				query	string	false	"Error reported by TikTok"
//	@Param			error_description	query	string	false	"Error description reported by TikTok"
//	@Success		302 "Redirect into the app"
//	@Router			/auth/tiktok/callback [get]
func (h *OAuth) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := core.CallbackInput{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		CookieVerifier:   cookieValue(r, VerifierCookie),
		CookieCSRF:       cookieValue(r, CSRFCookie),
	}
	if sess := mw.GetSession(r.Context()); sess != nil {
		in.UserID = sess.UserID
	}

	outcome, err := h.svc.HandleCallback(r.Context(), in)

	http.SetCookie(w, h.cookie(VerifierCookie, "", -1))
	http.SetCookie(w, h.cookie(CSRFCookie, "", -1))

	base := redirectBase(r)
	if err != nil {
		http.Redirect(w, r, base+"/?"+callbackErrorQuery(err).Encode(), http.StatusFound)
		return
	}

	payload, err := encodeProfile(outcome.Profile)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode profile payload")
		http.Redirect(w, r, base+"/?error="+core.CodeAccountLinkError, http.StatusFound)
		return
	}

	switch outcome.Kind {
	case core.OutcomeLinked:
		v := url.Values{"success": {"tiktok_connected"}, "profile": {payload}}
		http.Redirect(w, r, base+"/dashboard/accounts?"+v.Encode(), http.StatusFound)
	default:
		v := url.Values{"tiktok_profile": {payload}, "pending_link": {"true"}}
		http.Redirect(w, r, base+"/?"+v.Encode(), http.StatusFound)
	}
}

func (h *OAuth) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func callbackErrorQuery(err error) url.Values {
	v := url.Values{"error": {core.CodeTokenError}}
	var cbErr *core.CallbackError
	if errors.As(err, &cbErr) {
		v.Set("error", cbErr.Code)
		if cbErr.Code == core.CodeTikTokAuthError && cbErr.Description != "" {
			v.Set("message", cbErr.Description)
		}
	}
	return v
}

// encodeProfile renders the profile as unpadded base64url JSON for client
// side hydration.
func encodeProfile(p model.Profile) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// redirectBase is the externally visible origin of the request. Only the
// scheme is taken from a proxy; the host is the one the request was sent to.
func redirectBase(r *http.Request) string {
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	proto = strings.ToLower(strings.TrimSpace(proto))
	if proto != "http" && proto != "https" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + r.Host
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
