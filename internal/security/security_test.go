package security

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPasswordWithParams("correct horse", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=1,m=8192,p=1$"))

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	_, err := VerifyPassword("x", []byte("$2a$10$bcrypt-style"))
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, expiresAt, err := issuer.Issue("u1", "u1@example.org", "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), expiresAt)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)

	t.Run("expired", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := issuer.Parse(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("other", time.Minute)
		other.now = issuer.now
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestSessionCookie(t *testing.T) {
	sc := NewSessionCookie("0123456789abcdef0123456789abcdef", CookieOptions{
		Name:     "yp.sid",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * time.Minute,
	})

	id, err := NewSessionID()
	require.NoError(t, err)

	cookie, err := sc.Cookie(id)
	require.NoError(t, err)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 1800, cookie.MaxAge)

	decoded, err := sc.Decode(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = sc.Decode(id)
	assert.ErrorIs(t, err, ErrCookieInvalid)

	other := NewSessionCookie("a-different-secret-of-enough-length!", CookieOptions{Name: "yp.sid"})
	_, err = other.Decode(cookie.Value)
	assert.ErrorIs(t, err, ErrCookieInvalid)

	assert.Equal(t, -1, sc.Expired().MaxAge)
}
