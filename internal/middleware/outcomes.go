package middleware

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"youthportal/api/internal/response"
)

// RedirectOutcomes serves the browser-facing admin panel: missing or bad
// credentials go to the login page, privilege failures get a 403 page.
type RedirectOutcomes struct {
	LoginPath string
	Logger    zerolog.Logger
}

func (o RedirectOutcomes) Reject(c *gin.Context, d Decision) {
	switch d.State {
	case StateCredentialExpired:
		c.Redirect(http.StatusFound, o.LoginPath+"?"+url.Values{"expired": {"1"}}.Encode())
	case StateInsufficientRole:
		c.Status(http.StatusForbidden)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := forbiddenPage.Execute(c.Writer, forbiddenView{LoginPath: o.LoginPath}); err != nil {
			o.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("forbidden page render failed")
		}
	default:
		q := url.Values{"redirect": {c.Request.URL.RequestURI()}}
		c.Redirect(http.StatusFound, o.LoginPath+"?"+q.Encode())
	}
}

type forbiddenView struct {
	LoginPath string
}

var forbiddenPage = template.Must(template.New("forbidden").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Access denied</title></head>
<body>
<h1>403 &middot; Access denied</h1>
<p>Your account does not have permission to view this page.</p>
<p><a href="{{.LoginPath}}?unauthorized=1">Sign in with a different account</a></p>
</body>
</html>`))

// JSONOutcomes serves API clients with stable machine-readable codes so they
// can choose between refreshing and re-authenticating.
type JSONOutcomes struct{}

func (JSONOutcomes) Reject(c *gin.Context, d Decision) {
	switch d.State {
	case StateNoCredential:
		response.Fail(c, http.StatusUnauthorized, response.CodeAuthRequired, "Authentication required")
	case StateCredentialExpired:
		response.Fail(c, http.StatusUnauthorized, response.CodeAuthExpired, "Credential has expired")
	case StateInsufficientRole:
		response.Fail(c, http.StatusForbidden, response.CodeAuthForbidden, "Insufficient permissions")
	default:
		response.Fail(c, http.StatusUnauthorized, response.CodeAuthInvalid, "Credential is invalid")
	}
}
