package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Sessions    string `json:"sessions"`
	Environment string `json:"environment"`
}

// Health reports dependency status. The endpoint itself stays 200 while the
// process is up; a failing dependency turns status to "degraded".
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    "ok",
		Sessions:    "ok",
		Environment: h.cfg.Environment,
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			resp.Database = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Msg("database ping failed")
		}
	}

	if err := h.sessions.Ping(ctx); err != nil {
		resp.Sessions = "error"
		resp.Status = "degraded"
		h.log.Error().Err(err).Msg("session store ping failed")
	}

	c.JSON(http.StatusOK, resp)
}
