package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

var ErrCookieInvalid = errors.New("session cookie invalid")

type CookieOptions struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
	// MaxLength caps the encoded cookie value. Zero keeps the codec default.
	MaxLength int
}

// SessionCookie signs session ids with the session secret so a tampered or
// forged cookie is rejected before the store is consulted.
type SessionCookie struct {
	codec *securecookie.SecureCookie
	opts  CookieOptions
}

func NewSessionCookie(secret string, opts CookieOptions) *SessionCookie {
	hashKey := sha256.Sum256([]byte(secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(0)
	if opts.MaxLength > 0 {
		codec.MaxLength(opts.MaxLength)
	}
	return &SessionCookie{codec: codec, opts: opts}
}

func (c *SessionCookie) Name() string { return c.opts.Name }

func (c *SessionCookie) Encode(sessionID string) (string, error) {
	value, err := c.codec.Encode(c.opts.Name, sessionID)
	if err != nil {
		return "", fmt.Errorf("encode session cookie: %w", err)
	}
	return value, nil
}

func (c *SessionCookie) Decode(value string) (string, error) {
	var sessionID string
	if err := c.codec.Decode(c.opts.Name, value, &sessionID); err != nil {
		return "", ErrCookieInvalid
	}
	if sessionID == "" {
		return "", ErrCookieInvalid
	}
	return sessionID, nil
}

// Cookie builds the Set-Cookie value for a live session; MaxAge tracks the
// rolling timeout so the browser drops it together with the server record.
func (c *SessionCookie) Cookie(sessionID string) (*http.Cookie, error) {
	value, err := c.Encode(sessionID)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.opts.Name,
		Value:    value,
		Path:     "/",
		Domain:   c.opts.Domain,
		MaxAge:   int(c.opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	}, nil
}

func (c *SessionCookie) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     c.opts.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	}
}

// NewSessionID returns 32 random bytes, URL-safe encoded.
func NewSessionID() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("generate session id: entropy unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}
