// Package appconfig loads process configuration for the portal binaries from
// environment variables, with an optional .env file for development.
package appconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	goPortal "github.com/MrEthical07/goPortal"
)

// AppConfig is the environment of portal-server and portal-devbackend.
type AppConfig struct {
	// IsDev runs an embedded Redis and the in-memory dev backend when no
	// BACKEND_URL is set. DEV=true or NODE_ENV=development.
	IsDev    bool   `env:"DEV" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`

	HTTP       HTTPConfig
	Redis      RedisConfig   `envPrefix:"REDIS_"`
	Backend    BackendConfig `envPrefix:"BACKEND_"`
	Session    SessionConfig
	Flows      FlowsConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	DevBackend DevBackendConfig `envPrefix:"DEVBACKEND_"`
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	TrustProxy      bool          `env:"TRUST_PROXY" envDefault:"false"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type BackendConfig struct {
	URL               string        `env:"URL"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"15s"`
	RequestsPerSecond float64       `env:"RPS" envDefault:"20"`
	Burst             int           `env:"BURST" envDefault:"40"`
}

type SessionConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	Issuer            string        `env:"JWT_ISSUER" envDefault:"goportal"`
	Audience          string        `env:"JWT_AUDIENCE"`
	TTL               time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	AbsoluteLifetime  time.Duration `env:"SESSION_ABSOLUTE_LIFETIME" envDefault:"168h"`
	SlidingExpiration bool          `env:"SESSION_SLIDING" envDefault:"true"`
	RedisPrefix       string        `env:"SESSION_REDIS_PREFIX" envDefault:"ps"`
}

type FlowsConfig struct {
	CallTimeout   time.Duration `env:"FLOW_CALL_TIMEOUT" envDefault:"15s"`
	IdleTTL       time.Duration `env:"FLOW_IDLE_TTL" envDefault:"30m"`
	RedirectDelay time.Duration `env:"RECOVERY_REDIRECT_DELAY" envDefault:"3s"`
}

type RateLimitConfig struct {
	EnableIPThrottle  bool          `env:"RATE_LIMIT_IP" envDefault:"true"`
	MaxLoginAttempts  int           `env:"RATE_LIMIT_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginCooldown     time.Duration `env:"RATE_LIMIT_LOGIN_COOLDOWN" envDefault:"15m"`
	FlowWindow        time.Duration `env:"RATE_LIMIT_FLOW_WINDOW" envDefault:"15m"`
	MaxIdentify       int           `env:"RATE_LIMIT_IDENTIFY" envDefault:"10"`
	MaxCodeSend       int           `env:"RATE_LIMIT_CODE_SEND" envDefault:"5"`
	MaxCodeVerify     int           `env:"RATE_LIMIT_CODE_VERIFY" envDefault:"5"`
	MaxPerIPPerWindow int           `env:"RATE_LIMIT_PER_IP" envDefault:"50"`
}

type AuditConfig struct {
	Enabled    bool `env:"AUDIT_ENABLED" envDefault:"true"`
	BufferSize int  `env:"AUDIT_BUFFER" envDefault:"1024"`
	DropIfFull bool `env:"AUDIT_DROP_IF_FULL" envDefault:"true"`
	// File, when set, also receives every event as a JSON line.
	File string `env:"AUDIT_FILE"`
}

type DevBackendConfig struct {
	Addr    string        `env:"ADDR" envDefault:":8081"`
	CodeTTL time.Duration `env:"CODE_TTL" envDefault:"10m"`
}

// Load reads .env when present, then the environment.
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *AppConfig) Sanitize() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}

	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.Burst < 1 {
		c.Backend.Burst = 1
	}
	if c.Backend.RequestsPerSecond < 0 {
		c.Backend.RequestsPerSecond = 0
	}

	origins := c.HTTP.CORSOrigins[:0]
	for _, o := range c.HTTP.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.HTTP.CORSOrigins = origins

	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = 1024
	}
	if c.Session.TTL > c.Session.AbsoluteLifetime {
		c.Session.TTL = c.Session.AbsoluteLifetime
	}

	// Dev runs are plain http on localhost.
	if c.IsDev {
		c.HTTP.CookieSecure = false
	}
}

// PortalConfig maps the environment onto goPortal.Config. A dev run without
// JWT_SECRET signs with a fixed development key.
func (c AppConfig) PortalConfig() (goPortal.Config, error) {
	cfg := goPortal.DefaultConfig()

	secret := c.Session.JWTSecret
	if secret == "" {
		if !c.IsDev {
			return cfg, errors.New("JWT_SECRET is required outside dev mode")
		}
		secret = devJWTSecret
	}
	cfg.JWT.PrivateKey = []byte(secret)
	cfg.JWT.Issuer = c.Session.Issuer
	cfg.JWT.Audience = c.Session.Audience

	cfg.Session.RedisPrefix = c.Session.RedisPrefix
	cfg.Session.TTL = c.Session.TTL
	cfg.Session.AbsoluteLifetime = c.Session.AbsoluteLifetime
	cfg.Session.SlidingExpiration = c.Session.SlidingExpiration

	cfg.Flows.CallTimeout = c.Flows.CallTimeout
	cfg.Flows.FlowIdleTTL = c.Flows.IdleTTL
	cfg.Recovery.RedirectDelay = c.Flows.RedirectDelay

	cfg.RateLimit.EnableIPThrottle = c.RateLimit.EnableIPThrottle
	cfg.RateLimit.MaxLoginAttempts = c.RateLimit.MaxLoginAttempts
	cfg.RateLimit.LoginCooldownDuration = c.RateLimit.LoginCooldown
	cfg.RateLimit.FlowWindow = c.RateLimit.FlowWindow
	cfg.RateLimit.MaxIdentify = c.RateLimit.MaxIdentify
	cfg.RateLimit.MaxCodeSend = c.RateLimit.MaxCodeSend
	cfg.RateLimit.MaxCodeVerify = c.RateLimit.MaxCodeVerify
	cfg.RateLimit.MaxPerIPPerWindow = c.RateLimit.MaxPerIPPerWindow

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull

	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("portal config: %w", err)
	}
	return cfg, nil
}

const devJWTSecret = "goportal-development-signing-key-not-for-production"

// Logger builds the process logger and installs it as slog's default.
func (c AppConfig) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if !c.LogJSON {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
