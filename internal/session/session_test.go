package session

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"careerkit/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestGuestSessionSendsNoCookie(t *testing.T) {
	s := New("space-1", "user-1", "", "")
	req := httptest.NewRequest("GET", "/api/v1/resume/space-1/users/user-1/resumes", nil)

	s.Apply(req)

	assert.True(t, s.Guest())
	assert.Empty(t, req.Cookies())
	assert.Equal(t, DefaultCookieName, s.CookieName)
}

func TestApplyAddsSessionCookie(t *testing.T) {
	s := New("space-1", "user-1", "sid", "abc123")
	req := httptest.NewRequest("GET", "/", nil)

	s.Apply(req)

	cookie, err := req.Cookie("sid")
	require.NoError(t, err)
	assert.Equal(t, "abc123", cookie.Value)
	assert.False(t, s.Guest())
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		token      string
		hasExpiry  bool
		expired    bool
		expiredErr bool
	}{
		{name: "opaque token", token: "not-a-jwt", hasExpiry: false},
		{name: "guest", token: "", hasExpiry: false},
		{name: "valid jwt", token: signedToken(t, now.Add(time.Hour)), hasExpiry: true},
		{name: "expired jwt", token: signedToken(t, now.Add(-time.Minute)), hasExpiry: true, expired: true, expiredErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("space", "user", "", tt.token)

			_, ok := s.ExpiresAt()
			assert.Equal(t, tt.hasExpiry, ok)
			assert.Equal(t, tt.expired, s.Expired(now))

			err := s.Check(now)
			if tt.expiredErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeSessionExpired))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenWatcherReloadsToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("first\n"), 0o600))

	s := New("space", "user", "", "first")
	tw := NewTokenWatcher(tokenFile, s, 10*time.Millisecond, nil)
	reloaded := make(chan string, 1)
	tw.OnReload(func(token string) { reloaded <- token })

	require.NoError(t, tw.Start())
	defer func() { _ = tw.Stop() }()
	assert.Error(t, tw.Start(), "second start must fail")

	require.NoError(t, os.WriteFile(tokenFile, []byte("second\n"), 0o600))

	select {
	case token := <-reloaded:
		assert.Equal(t, "second", token)
	case <-time.After(5 * time.Second):
		t.Fatal("token was not reloaded")
	}
	assert.Equal(t, "second", s.Token())
}

func TestTokenWatcherStopIsIdempotent(t *testing.T) {
	tw := NewTokenWatcher(filepath.Join(t.TempDir(), "token"), New("", "", "", ""), 0, nil)
	require.NoError(t, tw.Start())
	assert.True(t, tw.IsRunning())

	require.NoError(t, tw.Stop())
	require.NoError(t, tw.Stop())
	assert.False(t, tw.IsRunning())
}
