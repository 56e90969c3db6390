package goPortal

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Config holds every tunable of a Portal. Build validates it once; the Portal
// keeps a private copy.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Flows     FlowsConfig
	Recovery  RecoveryConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the signed token that carries the session id.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the Redis session record.
type SessionConfig struct {
	RedisPrefix       string
	TTL               time.Duration
	AbsoluteLifetime  time.Duration
	SlidingExpiration bool
	JitterEnabled     bool
	JitterRange       time.Duration
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowsConfig bounds backend calls made by the verification and recovery
// flows. FlowIdleTTL is how long an abandoned flow survives in a registry.
type FlowsConfig struct {
	CallTimeout time.Duration
	FlowIdleTTL time.Duration
}

// RecoveryConfig controls the end of the recovery flow.
type RecoveryConfig struct {
	RedirectDelay time.Duration
}

// RateLimitConfig sets the login failure budget and the flow submission
// budgets. Flow budgets count submissions per Window.
type RateLimitConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	FlowWindow        time.Duration
	MaxIdentify       int
	MaxCodeSend       int
	MaxCodeVerify     int
	MaxPerIPPerWindow int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the backend latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a config that validates once JWT.PrivateKey is set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "goPortal",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:       "ps",
			TTL:               12 * time.Hour,
			AbsoluteLifetime:  7 * 24 * time.Hour,
			SlidingExpiration: true,
			JitterEnabled:     true,
			JitterRange:       30 * time.Second,
		},
		Flows: FlowsConfig{
			CallTimeout: 15 * time.Second,
			FlowIdleTTL: 30 * time.Minute,
		},
		Recovery: RecoveryConfig{
			RedirectDelay: 3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			FlowWindow:            15 * time.Minute,
			MaxIdentify:           10,
			MaxCodeSend:           5,
			MaxCodeVerify:         5,
			MaxPerIPPerWindow:     50,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("Session AbsoluteLifetime must be > 0")
	}
	if c.Session.TTL > c.Session.AbsoluteLifetime {
		return errors.New("Session TTL must be <= AbsoluteLifetime")
	}
	if c.Session.JitterRange < 0 {
		return errors.New("Session JitterRange must be >= 0")
	}
	if c.Session.JitterRange > time.Duration((math.MaxInt64-1)/2) {
		return errors.New("Session JitterRange is too large")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("Session JitterRange must be > 0 when JitterEnabled is true")
	}

	// Flows
	if c.Flows.CallTimeout <= 0 {
		return errors.New("Flows CallTimeout must be > 0")
	}
	if c.Flows.FlowIdleTTL <= 0 {
		return errors.New("Flows FlowIdleTTL must be > 0")
	}
	if c.Recovery.RedirectDelay < 0 {
		return errors.New("Recovery RedirectDelay must be >= 0")
	}

	// Rate limits
	if c.RateLimit.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.RateLimit.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}
	if c.RateLimit.FlowWindow <= 0 {
		return errors.New("RateLimit FlowWindow must be > 0")
	}
	if c.RateLimit.MaxIdentify <= 0 || c.RateLimit.MaxCodeSend <= 0 || c.RateLimit.MaxCodeVerify <= 0 {
		return errors.New("RateLimit flow budgets must be > 0")
	}
	if c.RateLimit.EnableIPThrottle && c.RateLimit.MaxPerIPPerWindow <= 0 {
		return errors.New("RateLimit MaxPerIPPerWindow must be > 0 when IP throttle is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
