package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"youthportal/api/internal/middleware"
	"youthportal/api/internal/models"
	"youthportal/api/internal/response"
	"youthportal/api/internal/service"
	"youthportal/api/internal/session"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	User           models.Principal `json:"user"`
	Message        string           `json:"message"`
	Token          string           `json:"token"`
	TokenExpiresAt time.Time        `json:"tokenExpiresAt"`
	ExpiresAt      time.Time        `json:"expiresAt"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.ObserveLogin(response.CodeValidation)
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "A valid email and password are required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:             req.Email,
		Password:          req.Password,
		PreviousSessionID: h.presentedSessionID(c),
	})
	if err != nil {
		status, code, message := loginFailure(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("login failed")
		}
		h.metrics.ObserveLogin(code)
		response.Fail(c, status, code, message)
		return
	}

	if err := h.setSessionCookie(c, result.Session.ID); err != nil {
		h.log.Error().Err(err).Msg("session cookie encode failed")
		if err := h.auth.Logout(c.Request.Context(), result.Session.ID); err != nil {
			h.log.Warn().Err(err).Msg("rollback session after cookie failure")
		}
		h.metrics.ObserveLogin(response.CodeInternal)
		response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "Login could not be completed")
		return
	}

	h.metrics.ObserveLogin("success")
	response.OK(c, http.StatusOK, loginResponse{
		User:           result.Principal,
		Message:        welcome(result.Principal),
		Token:          result.Token,
		TokenExpiresAt: result.TokenExpiresAt,
		ExpiresAt:      result.Session.ExpiresAt,
	})
}

func loginFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid email or password"
	case errors.Is(err, service.ErrInsufficientPrivileges):
		return http.StatusForbidden, response.CodeInsufficientPrivileges, "This account cannot access the admin panel"
	case errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden, response.CodeAccountInactive, "This account has been deactivated"
	case errors.Is(err, session.ErrSessionUnavailable):
		return http.StatusInternalServerError, response.CodeSessionUnavailable, "Login is temporarily unavailable"
	default:
		return http.StatusInternalServerError, response.CodeInternal, "Login could not be completed"
	}
}

func welcome(p models.Principal) string {
	if p.FirstName != "" {
		return "Welcome back, " + p.FirstName
	}
	return "Login successful"
}

// Logout always succeeds for the caller; store failures are logged only.
func (h HandlerSet) Logout(c *gin.Context) {
	if id := h.presentedSessionID(c); id != "" {
		if err := h.auth.Logout(c.Request.Context(), id); err != nil {
			h.log.Warn().Err(err).Msg("session destroy on logout failed")
		}
	}
	http.SetCookie(c.Writer, h.cookie.Expired())
	response.OK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

type checkResponse struct {
	IsAuthenticated bool              `json:"isAuthenticated"`
	User            *models.Principal `json:"user,omitempty"`
}

func (h HandlerSet) Check(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.OK(c, http.StatusOK, checkResponse{})
		return
	}
	response.OK(c, http.StatusOK, checkResponse{IsAuthenticated: true, User: &p})
}

type sessionStatusResponse struct {
	ExpiresAt     time.Time `json:"expiresAt"`
	TimeRemaining int64     `json:"timeRemaining"`
	ExpiringSoon  bool      `json:"expiringSoon"`
}

func (h HandlerSet) SessionStatus(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "No active session")
		return
	}
	response.OK(c, http.StatusOK, h.sessionStatus(sess))
}

// RefreshSession exists for idle UIs that want to extend the session without
// other traffic; the gate has already rolled the expiration by the time the
// handler runs.
func (h HandlerSet) RefreshSession(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "No active session")
		return
	}
	response.OK(c, http.StatusOK, h.sessionStatus(sess))
}

func (h HandlerSet) sessionStatus(sess session.Session) sessionStatusResponse {
	return sessionStatusResponse{
		ExpiresAt:     sess.ExpiresAt,
		TimeRemaining: int64(h.sessions.TimeRemaining(sess) / time.Second),
		ExpiringSoon:  h.sessions.IsExpiringSoon(sess),
	}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h HandlerSet) IssueToken(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}
	token, expiresAt, err := h.auth.IssueToken(p)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", p.ID).Msg("token issue failed")
		response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "Token could not be issued")
		return
	}
	response.OK(c, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

// presentedSessionID returns the id in a valid signed cookie, or "".
func (h HandlerSet) presentedSessionID(c *gin.Context) string {
	raw, err := c.Cookie(h.cookie.Name())
	if err != nil || raw == "" {
		return ""
	}
	id, err := h.cookie.Decode(raw)
	if err != nil {
		return ""
	}
	return id
}

func (h HandlerSet) setSessionCookie(c *gin.Context, sessionID string) error {
	cookie, err := h.cookie.Cookie(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, cookie)
	return nil
}
