package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	mw "github.com/viewstodownloads/tiktok-connect/internal/api/middleware"
	"github.com/viewstodownloads/tiktok-connect/internal/api/response"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// Error codes returned in JSON error bodies.
const (
	CodeReauthRequired  = "REAUTH_REQUIRED"
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	CodePrivacyConflict = "PRIVACY_CONFLICT"
	CodeSpamRisk        = "SPAM_RISK"
	CodeRateLimited     = "RATE_LIMITED"
	CodeProviderError   = "PROVIDER_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

const (
	msgReauthRequired = "Your TikTok connection has expired. Please reconnect your TikTok account."
	msgSpamRisk       = "TikTok flagged this post as potential spam. Please wait before posting again or change the content."
	msgRateLimited    = "Too many requests to TikTok. Please try again in a few minutes."
)

// userID returns the session user. Routes that call it sit behind
// RequireSession, so a missing session is a wiring bug.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess := mw.GetSession(r.Context())
	if sess == nil {
		response.WriteError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return sess.UserID, true
}

// writeServiceError maps a service failure to an HTTP reply. Provider
// messages for unclassified codes are passed through as-is.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteCodedError(w, http.StatusNotFound, CodeAccountNotFound, "TikTok account not found")
		return
	case errors.Is(err, core.ErrReauthRequired):
		response.WriteCodedError(w, http.StatusUnauthorized, CodeReauthRequired, msgReauthRequired)
		return
	case errors.Is(err, core.ErrPrivacyConflict):
		response.WriteCodedError(w, http.StatusUnprocessableEntity, CodePrivacyConflict, err.Error())
		return
	}

	if pe, ok := tiktok.AsProviderError(err); ok {
		logger.Warn().Err(err).Str("provider_code", pe.Code).Str("log_id", pe.LogID).Msg("tiktok request failed")
		switch pe.Kind {
		case tiktok.KindAccessTokenInvalid:
			response.WriteCodedError(w, http.StatusUnauthorized, CodeReauthRequired, msgReauthRequired)
		case tiktok.KindSpamRisk:
			response.WriteCodedError(w, http.StatusTooManyRequests, CodeSpamRisk, msgSpamRisk)
		case tiktok.KindRateLimited:
			response.WriteCodedError(w, http.StatusTooManyRequests, CodeRateLimited, msgRateLimited)
		default:
			msg := pe.Message
			if msg == "" {
				msg = pe.Code
			}
			response.WriteCodedError(w, http.StatusBadGateway, CodeProviderError, msg)
		}
		return
	}

	logger.Error().Err(err).Msg("request failed")
	response.WriteError(w, http.StatusInternalServerError, "internal error")
}
