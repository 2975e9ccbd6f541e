package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
	"github.com/viewstodownloads/tiktok-connect/internal/platform"
	"github.com/viewstodownloads/tiktok-connect/internal/tiktok"
)

// Callback stages, in order. A failure at any stage ends the flow.
const (
	StageReceived          = "received"
	StageVerifierRecovered = "verifier_recovered"
	StageTokenExchanged    = "token_exchanged"
	StageProfileFetched    = "profile_fetched"
	StageAccountLinked     = "account_linked"
	StageAccountDeferred   = "account_deferred"
)

// Redirect error codes reported by the callback.
const (
	CodeOAuthInitError      = "oauth_init_error"
	CodeTikTokAuthError     = "tiktok_auth_error"
	CodeMissingParams       = "missing_params"
	CodeMissingCodeVerifier = "missing_code_verifier"
	CodeStateExpired        = "state_expired"
	CodeStateReused         = "state_reused"
	CodeTokenError          = "token_error"
	CodeAccountLinkError    = "account_link_error"
)

// PlaceholderPrefix marks provider account ids synthesized when the profile
// could not be read.
const PlaceholderPrefix = "pending_"

// CallbackError ends the callback flow. Code is safe to show to the user.
type CallbackError struct {
	Stage       string
	Code        string
	Description string
	Err         error
}

func (e *CallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth callback %s: %s: %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("oauth callback %s: %s", e.Stage, e.Code)
}

func (e *CallbackError) Unwrap() error { return e.Err }

type OutcomeKind int

const (
	// OutcomeLinked means the account row was written for the session user.
	OutcomeLinked OutcomeKind = iota + 1
	// OutcomeDeferred means no session was present and linking is left to
	// the client after sign-in.
	OutcomeDeferred
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeLinked:
		return StageAccountLinked
	case OutcomeDeferred:
		return StageAccountDeferred
	}
	return "unknown"
}

type CallbackOutcome struct {
	Kind    OutcomeKind
	Profile model.Profile
	Account *model.ConnectedAccount
}

// CallbackInput is everything the callback reads from the request.
type CallbackInput struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
	CookieVerifier   string
	CookieCSRF       string
	// UserID is empty when the request carries no application session.
	UserID string
}

// AuthRequest is a started authorization attempt.
type AuthRequest struct {
	URL     string
	State   string
	Pending model.PendingAuth
}

// ConnectService runs the PKCE authorization flow.
type ConnectService struct {
	provider Provider
	accounts *AccountService
	consumed *ttlcache.Cache[string, struct{}]
	now      func() time.Time
}

// NewConnectService creates the service. consumed records spent CSRF tokens
// for the lifetime of a pending state.
func NewConnectService(provider Provider, accounts *AccountService, consumed *ttlcache.Cache[string, struct{}]) *ConnectService {
	return &ConnectService{
		provider: provider,
		accounts: accounts,
		consumed: consumed,
		now:      time.Now,
	}
}

// NewConsumedStateCache builds the single-use ledger for NewConnectService.
// The caller runs Start and Stop.
func NewConsumedStateCache() *ttlcache.Cache[string, struct{}] {
	return ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](model.PendingAuthTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
}

// Begin starts an authorization attempt.
func (s *ConnectService) Begin() (*AuthRequest, error) {
	p := NewPKCE()
	pending := p.Pending(s.now())

	state, err := EncodeState(pending)
	if err != nil {
		return nil, err
	}
	u, err := s.provider.AuthorizeURL(state, p.Challenge)
	if err != nil {
		return nil, fmt.Errorf("build authorize url: %w", err)
	}
	return &AuthRequest{URL: u, State: state, Pending: pending}, nil
}

// HandleCallback drives the callback state machine. Failures are returned as
// *CallbackError.
func (s *ConnectService) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackOutcome, error) {
	logger := zerolog.Ctx(ctx)

	outcome, err := s.handleCallback(ctx, in)
	if err != nil {
		var cbErr *CallbackError
		if errors.As(err, &cbErr) {
			metrics.OAuthCallbacks.WithLabelValues(cbErr.Code).Inc()
			logger.Warn().Err(cbErr.Err).Str("stage", cbErr.Stage).Str("code", cbErr.Code).
				Str("description", cbErr.Description).Msg("tiktok oauth callback failed")
		}
		return nil, err
	}

	metrics.OAuthCallbacks.WithLabelValues(outcome.Kind.String()).Inc()
	logger.Info().Str("stage", outcome.Kind.String()).Str("open_id", outcome.Profile.OpenID).
		Bool("placeholder_profile", outcome.Profile.Placeholder).Msg("tiktok oauth callback completed")
	return outcome, nil
}

func (s *ConnectService) handleCallback(ctx context.Context, in CallbackInput) (*CallbackOutcome, error) {
	// received
	if in.Error != "" {
		return nil, &CallbackError{Stage: StageReceived, Code: CodeTikTokAuthError, Description: describeAuthError(in)}
	}
	if in.Code == "" || in.State == "" {
		return nil, &CallbackError{Stage: StageReceived, Code: CodeMissingParams}
	}

	// verifier_recovered
	pending, err := s.recoverPending(in)
	if err != nil {
		return nil, err
	}

	// token_exchanged
	tok, err := s.provider.ExchangeCode(ctx, in.Code, pending.CodeVerifier)
	if err != nil {
		return nil, &CallbackError{Stage: StageTokenExchanged, Code: CodeTokenError, Err: err}
	}

	// profile_fetched
	profile := s.fetchProfile(ctx, tok)

	if in.UserID == "" {
		return &CallbackOutcome{Kind: OutcomeDeferred, Profile: *profile}, nil
	}

	acct, err := s.accounts.Link(ctx, in.UserID, tok, profile, s.now())
	if err != nil {
		return nil, &CallbackError{Stage: StageAccountLinked, Code: CodeAccountLinkError, Err: err}
	}
	return &CallbackOutcome{Kind: OutcomeLinked, Profile: *profile, Account: acct}, nil
}

// recoverPending merges the cookie values with the state payload. Values
// embedded in state take precedence since cookies are lost across some
// proxy hops.
func (s *ConnectService) recoverPending(in CallbackInput) (*model.PendingAuth, error) {
	pending := &model.PendingAuth{CSRF: in.CookieCSRF, CodeVerifier: in.CookieVerifier}
	stateDecoded := false

	if decoded, err := DecodeState(in.State); err == nil {
		if decoded.CodeVerifier != "" {
			pending.CodeVerifier = decoded.CodeVerifier
		}
		if decoded.CSRF != "" {
			pending.CSRF = decoded.CSRF
		}
		pending.Timestamp = decoded.Timestamp
		stateDecoded = true
	}

	if pending.CodeVerifier == "" {
		return nil, &CallbackError{Stage: StageVerifierRecovered, Code: CodeMissingCodeVerifier}
	}
	// Cookie-only recovery is bounded by the cookies' max age instead.
	if stateDecoded && pending.Expired(s.now()) {
		return nil, &CallbackError{Stage: StageVerifierRecovered, Code: CodeStateExpired,
			Description: "authorization request is older than 10 minutes"}
	}

	key := pending.CSRF
	if key == "" {
		key = in.State
	}
	if _, seen := s.consumed.GetOrSet(key, struct{}{}); seen {
		return nil, &CallbackError{Stage: StageVerifierRecovered, Code: CodeStateReused}
	}
	return pending, nil
}

// fetchProfile never fails the flow. A profile that cannot be read becomes a
// placeholder keyed by the token's open_id, so reconnecting updates the same
// account. Only a token without open_id gets a random pending_ id.
func (s *ConnectService) fetchProfile(ctx context.Context, tok *model.Token) *model.Profile {
	profile, err := s.provider.FetchUser(ctx, tok.AccessToken)
	if err == nil {
		return profile
	}

	ev := zerolog.Ctx(ctx).Warn().Err(err).Str("stage", StageProfileFetched)
	if tiktok.IsKind(err, tiktok.KindScopeNotAuthorized) {
		ev.Msg("user.info scope not granted, using placeholder profile")
	} else {
		ev.Msg("profile fetch failed, using placeholder profile")
	}
	openID := tok.OpenID
	if openID == "" {
		openID = platform.NewName(PlaceholderPrefix)
	}
	return &model.Profile{
		OpenID:      openID,
		DisplayName: "TikTok User",
		Placeholder: true,
	}
}

func describeAuthError(in CallbackInput) string {
	if in.ErrorDescription != "" {
		return in.Error + ": " + in.ErrorDescription
	}
	return in.Error
}

// Disconnect revokes the account's access token and deletes the row.
// Revocation is best effort.
func (s *ConnectService) Disconnect(ctx context.Context, userID, accountID string) error {
	acct, err := s.accounts.GetForUser(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if err := s.provider.RevokeToken(ctx, acct.AccessToken); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", acct.ID).Msg("token revocation failed")
	}
	return s.accounts.Delete(ctx, acct.ID, userID)
}
