package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"youthportal/api/internal/middleware"
	"youthportal/api/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func renderPage(c *gin.Context, status int, name string, data any) {
	c.Render(status, render.HTML{Template: pages, Name: name, Data: data})
}

type loginPage struct {
	Expired      bool
	Unauthorized bool
	Redirect     string
}

func (h HandlerSet) AdminLoginPage(c *gin.Context) {
	renderPage(c, http.StatusOK, "login.html", loginPage{
		Expired:      c.Query("expired") == "1",
		Unauthorized: c.Query("unauthorized") == "1",
		Redirect:     safeRedirect(c.Query("redirect")),
	})
}

// safeRedirect keeps post-login redirects on this origin.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/admin/dashboard"
	}
	return target
}

type panelPage struct {
	Principal   models.Principal
	DisplayName string
	IsAdmin     bool
	ExpiresAt   time.Time
}

func (h HandlerSet) panelPage(c *gin.Context) (panelPage, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return panelPage{}, false
	}
	page := panelPage{
		Principal:   p,
		DisplayName: strings.TrimSpace(p.FirstName + " " + p.LastName),
		IsAdmin:     models.IsAdmin(p.Role),
	}
	if page.DisplayName == "" {
		page.DisplayName = p.Email
	}
	if sess, ok := middleware.CurrentSession(c); ok {
		page.ExpiresAt = sess.ExpiresAt
	}
	return page, true
}

func (h HandlerSet) AdminDashboard(c *gin.Context) {
	page, ok := h.panelPage(c)
	if !ok {
		c.Redirect(http.StatusFound, h.cfg.Admin.LoginPath)
		return
	}
	renderPage(c, http.StatusOK, "dashboard.html", page)
}

func (h HandlerSet) AdminUsers(c *gin.Context) {
	page, ok := h.panelPage(c)
	if !ok {
		c.Redirect(http.StatusFound, h.cfg.Admin.LoginPath)
		return
	}
	renderPage(c, http.StatusOK, "users.html", page)
}
