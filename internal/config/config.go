package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketTemp string
	UseSSL     bool
	Region     string
}

type SessionConfig struct {
	Secret         string
	Timeout        time.Duration
	WarningWindow  time.Duration
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string
	KeyPrefix      string

	// ExpiredGrace is how long an expired record stays readable so it can be
	// reported as expired rather than unknown. Zero means one Timeout.
	ExpiredGrace time.Duration
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
}

type AdminConfig struct {
	LoginPath string
}

type JobsConfig struct {
	SweepSchedule   string
	CleanupSchedule string
	TempPrefix      string
	TempMaxAge      time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Session          SessionConfig
	Security         SecurityConfig
	Admin            AdminConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// SameSite maps the configured cookie policy onto net/http. Unknown values
// fall back to Lax.
func (c SessionConfig) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func Load() (*AppConfig, error) {
	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("YOUTHPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsProduction() {
		cfg.Session.CookieSecure = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret is required"))
	} else if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("session.secret must be at least 32 bytes"))
	}
	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("session.timeout must be positive"))
	}
	if c.Session.WarningWindow < 0 {
		errs = append(errs, errors.New("session.warningwindow must not be negative"))
	}
	if c.Session.ExpiredGrace < 0 {
		errs = append(errs, errors.New("session.expiredgrace must not be negative"))
	}
	if c.Security.JWTAccessSecret == "" {
		errs = append(errs, errors.New("security.jwtaccesssecret is required"))
	}
	if c.Security.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("security.jwtaccessttl must be positive"))
	}
	if !strings.HasPrefix(c.Admin.LoginPath, "/") {
		errs = append(errs, errors.New("admin.loginpath must be an absolute path"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	// Keys without a useful default are still registered so AutomaticEnv
	// can populate them during Unmarshal.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookiedomain", "")
	v.SetDefault("session.cookiesecure", false)
	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("allowcorsorigins", []string{})

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 4)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.buckettemp", "youthportal-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("session.timeout", "30m")
	v.SetDefault("session.warningwindow", "5m")
	v.SetDefault("session.expiredgrace", "0s")
	v.SetDefault("session.cookiename", "yp.sid")
	v.SetDefault("session.cookiesamesite", "lax")
	v.SetDefault("session.keyprefix", "yp:")

	v.SetDefault("security.jwtaccessttl", "15m")

	v.SetDefault("admin.loginpath", "/admin/login")

	v.SetDefault("jobs.sweepschedule", "0 */15 * * * *")
	v.SetDefault("jobs.cleanupschedule", "0 30 3 * * *")
	v.SetDefault("jobs.tempprefix", "tmp/")
	v.SetDefault("jobs.tempmaxage", "24h")
}
