package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"youthportal/api/internal/security"
	"youthportal/api/internal/session"
)

// SessionCredentials reads the signed session cookie and resolves it through
// the session manager. Valid requests slide the expiration window and get a
// fresh cookie.
type SessionCredentials struct {
	sessions *session.Manager
	cookie   *security.SessionCookie
	log      zerolog.Logger
}

func NewSessionCredentials(sessions *session.Manager, cookie *security.SessionCookie, log zerolog.Logger) *SessionCredentials {
	return &SessionCredentials{sessions: sessions, cookie: cookie, log: log}
}

func (s *SessionCredentials) Surface() string { return "session" }

func (s *SessionCredentials) Extract(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(s.cookie.Name())
	if err != nil || raw == "" {
		return "", false
	}
	return raw, true
}

func (s *SessionCredentials) Resolve(ctx context.Context, raw string) (Credential, State, error) {
	id, err := s.cookie.Decode(raw)
	if err != nil {
		return Credential{}, StateCredentialInvalid, nil
	}

	sess, err := s.sessions.Load(ctx, id)
	switch {
	case errors.Is(err, session.ErrExpired):
		return Credential{UserID: sess.UserID, Session: &sess}, StateCredentialExpired, nil
	case errors.Is(err, session.ErrNotFound):
		// Unknown id: the record is gone, only the cookie needs clearing.
		return Credential{}, StateCredentialInvalid, nil
	case err != nil:
		return Credential{}, StateNoCredential, err
	case sess.Anonymous():
		return Credential{Session: &sess}, StateNoCredential, nil
	}
	return Credential{UserID: sess.UserID, Session: &sess}, StateValid, nil
}

func (s *SessionCredentials) Revoke(c *gin.Context, cred Credential) {
	if cred.Session != nil {
		if err := s.sessions.Destroy(c.Request.Context(), cred.Session.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", cred.UserID).Msg("session destroy failed")
		}
	}
	http.SetCookie(c.Writer, s.cookie.Expired())
}

func (s *SessionCredentials) Accept(c *gin.Context, cred *Credential) {
	if cred.Session == nil {
		return
	}
	// Activity tracking is best effort; the request is already authorized.
	if err := s.sessions.UpdateActivity(c.Request.Context(), cred.Session); err != nil {
		s.log.Warn().Err(err).Str("user_id", cred.UserID).Msg("session activity update failed")
		return
	}
	cookie, err := s.cookie.Cookie(cred.Session.ID)
	if err != nil {
		s.log.Warn().Err(err).Msg("session cookie refresh failed")
		return
	}
	http.SetCookie(c.Writer, cookie)
}

const accessTokenCookie = "access_token"

// BearerCredentials verifies JWT access tokens from the Authorization header,
// falling back to an access_token cookie.
type BearerCredentials struct {
	tokens *security.TokenIssuer
}

func NewBearerCredentials(tokens *security.TokenIssuer) *BearerCredentials {
	return &BearerCredentials{tokens: tokens}
}

func (b *BearerCredentials) Surface() string { return "bearer" }

func (b *BearerCredentials) Extract(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(token)
			return token, token != ""
		}
		// A malformed Authorization header still counts as a presented
		// credential so it is reported as invalid rather than absent.
		return header, true
	}
	if raw, err := c.Cookie(accessTokenCookie); err == nil && raw != "" {
		return raw, true
	}
	return "", false
}

func (b *BearerCredentials) Resolve(_ context.Context, raw string) (Credential, State, error) {
	claims, err := b.tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return Credential{}, StateCredentialExpired, nil
		}
		return Credential{}, StateCredentialInvalid, nil
	}
	return Credential{UserID: claims.UserID}, StateValid, nil
}

// Tokens are stateless; there is nothing to revoke server-side.
func (b *BearerCredentials) Revoke(*gin.Context, Credential) {}

func (b *BearerCredentials) Accept(*gin.Context, *Credential) {}
