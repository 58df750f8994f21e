package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/zanclus/nexus-auth-proxy/internal/authz"
	"github.com/zanclus/nexus-auth-proxy/internal/session"
)

// SessionManager binds browser cookies to server-side sessions.
type SessionManager struct {
	store      session.Store
	cookieName string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewSessionManager creates a manager over the given store.
func NewSessionManager(store session.Store, cookieName string, ttl time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{store: store, cookieName: cookieName, ttl: ttl, logger: logger}
}

// Load returns the caller's session, or nil when no valid session cookie is
// presented. Store failures degrade to the anonymous caller; authorization
// fails closed either way.
func (m *SessionManager) Load(r *http.Request) *session.Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil
	}
	sess, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if err != session.ErrNotFound {
			m.logger.WarnContext(r.Context(), "session lookup failed", "error", err.Error())
		}
		return nil
	}
	return sess
}

// Issue creates a fresh session and sets its cookie on the response.
func (m *SessionManager) Issue(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	sess := session.New(m.ttl)
	if err := m.store.Save(r.Context(), sess); err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
	return sess, nil
}

// Save persists an updated session.
func (m *SessionManager) Save(r *http.Request, sess *session.Session) error {
	return m.store.Save(r.Context(), sess)
}

// Clear deletes the caller's session and expires the cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if err := m.store.Delete(r.Context(), cookie.Value); err != nil {
			m.logger.WarnContext(r.Context(), "session delete failed", "error", err.Error())
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Access derives the caller's capabilities from their session.
func (m *SessionManager) Access(r *http.Request) authz.Access {
	sess := m.Load(r)
	if sess == nil {
		return authz.Access{}
	}
	return authz.Evaluate(sess.Profile)
}
