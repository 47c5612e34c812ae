// Package session holds the identity the backend client acts for: the
// workspace, the user, and the credential cookie. A session without a token
// is a guest session.
package session

import (
	"net/http"
	"sync"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is used when the configuration leaves it blank
const DefaultCookieName = "session"

// Session is passed explicitly to everything that talks to the backend
type Session struct {
	SpaceID    string
	UserID     string
	CookieName string

	mu    sync.RWMutex
	token string
}

// New creates a session; an empty token yields a guest session
func New(spaceID, userID, cookieName, token string) *Session {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Session{
		SpaceID:    spaceID,
		UserID:     userID,
		CookieName: cookieName,
		token:      token,
	}
}

// FromConfig builds the session described by the session config section
func FromConfig(cfg *config.SessionConfig) *Session {
	return New(cfg.SpaceID, cfg.UserID, cfg.CookieName, cfg.Token)
}

// Guest reports whether the session carries no credential
func (s *Session) Guest() bool {
	return s.Token() == ""
}

// Token returns the current credential
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the credential, e.g. after the token file was rotated
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Apply attaches the session cookie to req. Guest sessions add nothing.
func (s *Session) Apply(req *http.Request) {
	token := s.Token()
	if token == "" {
		return
	}
	req.AddCookie(&http.Cookie{Name: s.CookieName, Value: token})
}

// ExpiresAt reads the exp claim when the token is a JWT. The signature is
// not verified; the backend remains the authority.
func (s *Session) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim before now
func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// Check returns a session error when the credential has already expired
func (s *Session) Check(now time.Time) error {
	if !s.Expired(now) {
		return nil
	}
	exp, _ := s.ExpiresAt()
	return errors.NewConfigError(errors.ErrCodeSessionExpired,
		"session token has expired; sign in again or update session.token", nil).
		WithContext("expired_at", exp.Format(time.RFC3339))
}
