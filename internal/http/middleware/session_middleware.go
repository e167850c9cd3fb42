package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/brforum/forum-backend/internal/security"
	"github.com/brforum/forum-backend/internal/session"
)

type sessionCtxKey struct{}

type sessionState struct {
	id       string
	identity *session.Identity
}

// SessionManager resolves the session cookie on every request. An absent or
// invalid cookie gets a fresh anonymous session, so pre-login flows can
// already carry flash results.
type SessionManager struct {
	codec   *security.SessionCodec
	cookies *security.CookieManager
	store   *session.Store
	ttl     time.Duration
	logger  *slog.Logger
}

func NewSessionManager(codec *security.SessionCodec, cookies *security.CookieManager, store *session.Store, ttl time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{codec: codec, cookies: cookies, store: store, ttl: ttl, logger: logger}
}

func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := sessionState{}

		if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
			if sid, err := m.codec.Decode(raw); err == nil {
				state.id = sid
			}
		}
		if state.id == "" {
			state.id = m.store.NewID()
			token, err := m.codec.Encode(state.id)
			if err != nil {
				m.logger.ErrorContext(r.Context(), "minting session token failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			m.cookies.SetSessionCookie(w, token, m.ttl)
		}

		identity, err := m.store.Identity(r.Context(), state.id)
		if err != nil {
			m.logger.WarnContext(r.Context(), "loading session identity failed", "error", err)
		}
		state.identity = identity

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, state)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the request's session id, or "" outside the middleware.
func SessionID(ctx context.Context) string {
	if s, ok := ctx.Value(sessionCtxKey{}).(sessionState); ok {
		return s.id
	}
	return ""
}

// CurrentIdentity returns the logged-in identity, or nil for anonymous
// sessions.
func CurrentIdentity(ctx context.Context) *session.Identity {
	if s, ok := ctx.Value(sessionCtxKey{}).(sessionState); ok {
		return s.identity
	}
	return nil
}
