package tiktok

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a provider response that decoded but lacked the
// fields the caller needs.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrorKind classifies provider error codes. KindUnknown covers every code
// without special handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAccessTokenInvalid
	KindScopeNotAuthorized
	KindSpamRisk
	KindRateLimited
	KindInvalidGrant
	KindInvalidRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindAccessTokenInvalid:
		return "access_token_invalid"
	case KindScopeNotAuthorized:
		return "scope_not_authorized"
	case KindSpamRisk:
		return "spam_risk"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidGrant:
		return "invalid_grant"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// ProviderError is a failure reported by the TikTok API.
type ProviderError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	LogID      string
	HTTPStatus int
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tiktok: %s", e.Code)
	}
	return fmt.Sprintf("tiktok: %s: %s", e.Code, e.Message)
}

func kindForCode(code string) ErrorKind {
	switch code {
	case "access_token_invalid", "invalid_token", "token_expired":
		return KindAccessTokenInvalid
	case "scope_not_authorized", "scope_permission_missed":
		return KindScopeNotAuthorized
	case "spam_risk_too_high", "spam_risk_too_many_posts", "spam_risk_user_banned_from_posting":
		return KindSpamRisk
	case "rate_limit_exceeded":
		return KindRateLimited
	case "invalid_grant", "invalid_refresh_token":
		return KindInvalidGrant
	case "invalid_request", "invalid_params", "invalid_client":
		return KindInvalidRequest
	}
	return KindUnknown
}

func newProviderError(code, message, logID string, status int) *ProviderError {
	return &ProviderError{
		Kind:       kindForCode(code),
		Code:       code,
		Message:    message,
		LogID:      logID,
		HTTPStatus: status,
	}
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsKind reports whether err carries a provider error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Kind == kind
}

// apiError is the error object of the open API envelope. Code "ok" means
// success.
type apiError struct {
	Code    string `json:"code" validate:"required"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// oauthError decodes the token endpoint's error field, which arrives either
// as a bare string or as an object.
type oauthError struct {
	Code    string
	Message string
}

func (e *oauthError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Code = s
		return nil
	}
	var obj struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Code = obj.Code
	e.Message = strings.TrimSpace(obj.Message + " " + obj.Description)
	return nil
}
