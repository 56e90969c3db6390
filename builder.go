package goPortal

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/MrEthical07/goPortal/internal/audit"
	"github.com/MrEthical07/goPortal/internal/limiters"
	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/MrEthical07/goPortal/jwt"
	"github.com/MrEthical07/goPortal/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Portal. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	routes    []RouteDescriptor
	backend   Backend
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig and DefaultRoutes.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		routes: DefaultRoutes(),
	}
}

// WithConfig replaces the whole config. The Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing sessions and rate limits.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBackend sets the identity backend.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithRoutes replaces the route table.
func (b *Builder) WithRoutes(routes []RouteDescriptor) *Builder {
	b.routes = append([]RouteDescriptor(nil), routes...)
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithLogger sets the structured logger. The default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the backend latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Portal.
func (b *Builder) Build() (*Portal, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.backend == nil {
		return nil, errors.New("backend required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	routes, err := NewRouteTable(b.routes)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "portal")

	// -------- SESSION STORE --------
	storeOpts := session.Options{
		Prefix:           cfg.Session.RedisPrefix,
		AbsoluteLifetime: cfg.Session.AbsoluteLifetime,
		Sliding:          cfg.Session.SlidingExpiration,
		IdleTTL:          cfg.Session.TTL,
	}
	if cfg.Session.JitterEnabled {
		storeOpts.Jitter = cfg.Session.JitterRange
	}
	store := session.NewStore(b.redis, storeOpts)

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.AbsoluteLifetime,
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}

	p := &Portal{
		config:       cfg,
		routes:       routes,
		backend:      b.backend,
		sessionStore: store,
		jwtManager:   jm,
		logger:       logger,
		metrics:      NewMetrics(cfg.Metrics),
	}

	p.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
		MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
		LoginCooldownDuration: cfg.RateLimit.LoginCooldownDuration,
	})
	p.flowLimiter = limiters.NewFlowLimiter(b.redis, limiters.FlowConfig{
		EnableIPThrottle:  cfg.RateLimit.EnableIPThrottle,
		Window:            cfg.RateLimit.FlowWindow,
		MaxIdentify:       cfg.RateLimit.MaxIdentify,
		MaxCodeSend:       cfg.RateLimit.MaxCodeSend,
		MaxCodeVerify:     cfg.RateLimit.MaxCodeVerify,
		MaxPerIPPerWindow: cfg.RateLimit.MaxPerIPPerWindow,
	})
	p.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev audit.Event) {
			logger.Warn("audit event dropped", "event_type", ev.EventType)
		},
		OnSinkPanic: func(ev audit.Event, r any) {
			logger.Error("audit sink panicked", "event_type", ev.EventType, "panic", r)
		},
	}, b.auditSink)

	b.built = true

	return p, nil
}
