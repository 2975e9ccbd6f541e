package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/api/response"
	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookie carries the session token for browser requests.
const SessionCookie = "session"

type SessionValidator interface {
	Validate(token string) (*model.Session, error)
}

// RequireSession rejects requests without a valid application session.
func RequireSession(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			sess, err := v.Validate(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid session")
				return
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
		})
	}
}

// OptionalSession attaches the session when one is present and valid. An
// invalid token is treated as no session.
func OptionalSession(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := sessionToken(r); token != "" {
				sess, err := v.Validate(token)
				if err == nil {
					r = r.WithContext(withSession(r.Context(), sess))
				} else {
					zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid session")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession returns the request's session, or nil.
func GetSession(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey).(*model.Session)
	return sess
}

// WithSession is exported for handler tests.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return withSession(ctx, sess)
}

func withSession(ctx context.Context, sess *model.Session) context.Context {
	logger := zerolog.Ctx(ctx).With().Str("user_id", sess.UserID).Logger()
	return logger.WithContext(context.WithValue(ctx, sessionKey, sess))
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
