package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	return AppConfig{
		Environment: "test",
		Session: SessionConfig{
			Secret:        "0123456789abcdef0123456789abcdef",
			Timeout:       30 * time.Minute,
			WarningWindow: 5 * time.Minute,
		},
		Security: SecurityConfig{
			JWTAccessSecret: "jwt-secret",
			JWTAccessTTL:    15 * time.Minute,
		},
		Admin: AdminConfig{LoginPath: "/admin/login"},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Session.Secret = "short"
	cfg.Session.Timeout = 0
	cfg.Admin.LoginPath = "admin/login"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.secret")
	assert.Contains(t, err.Error(), "session.timeout")
	assert.Contains(t, err.Error(), "admin.loginpath")
}

func TestValidate_ExpiredGrace(t *testing.T) {
	cfg := validConfig()
	cfg.Session.ExpiredGrace = 0
	require.NoError(t, cfg.Validate())

	cfg.Session.ExpiredGrace = -time.Minute
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.expiredgrace")
}

func TestSessionConfig_SameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, SessionConfig{CookieSameSite: "Strict"}.SameSite())
	assert.Equal(t, http.SameSiteNoneMode, SessionConfig{CookieSameSite: "none"}.SameSite())
	assert.Equal(t, http.SameSiteLaxMode, SessionConfig{CookieSameSite: "bogus"}.SameSite())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("YOUTHPORTAL_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("YOUTHPORTAL_SECURITY_JWTACCESSSECRET", "jwt-secret")
	t.Setenv("YOUTHPORTAL_SESSION_TIMEOUT", "45m")
	t.Setenv("YOUTHPORTAL_SESSION_EXPIREDGRACE", "2h")
	t.Setenv("YOUTHPORTAL_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.WarningWindow)
	assert.Equal(t, 2*time.Hour, cfg.Session.ExpiredGrace)
	assert.Equal(t, "yp.sid", cfg.Session.CookieName)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, "/admin/login", cfg.Admin.LoginPath)
}
