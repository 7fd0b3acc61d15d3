package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"youthportal/api/internal/middleware"
	"youthportal/api/internal/models"
	"youthportal/api/internal/response"
)

func (h HandlerSet) Me(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"user": p})
}

type whoAmIResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *models.Principal `json:"user,omitempty"`
}

func (h HandlerSet) WhoAmI(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.OK(c, http.StatusOK, whoAmIResponse{})
		return
	}
	response.OK(c, http.StatusOK, whoAmIResponse{Authenticated: true, User: &p})
}

type revokeResponse struct {
	UserID  string `json:"userId"`
	Revoked int    `json:"revoked"`
}

func (h HandlerSet) RevokeUserSessions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "User id required")
		return
	}

	n, err := h.auth.RevokeSessions(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("session revocation failed")
		response.Fail(c, http.StatusInternalServerError, response.CodeSessionUnavailable, "Sessions could not be revoked")
		return
	}
	h.metrics.ObserveRevocations(n)

	actor, _ := middleware.CurrentPrincipal(c)
	h.log.Info().Str("actor_id", actor.ID).Str("user_id", userID).Int("revoked", n).Msg("admin revoked user sessions")
	response.OK(c, http.StatusOK, revokeResponse{UserID: userID, Revoked: n})
}
