package goPortal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goPortal/internal"
	"github.com/MrEthical07/goPortal/internal/audit"
	"github.com/MrEthical07/goPortal/internal/flows"
	"github.com/MrEthical07/goPortal/internal/limiters"
	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/MrEthical07/goPortal/jwt"
	"github.com/MrEthical07/goPortal/session"
)

// Portal ties the route guard, the session lifecycle and the two
// unauthenticated flows to one backend and one Redis.
//
// A Portal is safe for concurrent use. Build it with New().
type Portal struct {
	config       Config
	routes       *RouteTable
	backend      Backend
	sessionStore *session.Store
	jwtManager   *jwt.Manager
	rateLimiter  *rate.Limiter
	flowLimiter  *limiters.FlowLimiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
}

// Close flushes and stops the audit dispatcher.
func (p *Portal) Close() {
	if p == nil {
		return
	}
	p.audit.Close()
}

// AuditStats reports what the audit dispatcher did with emitted events. It
// is zero when auditing is off.
func (p *Portal) AuditStats() AuditStats {
	if p == nil {
		return AuditStats{}
	}
	return p.audit.Stats()
}

// MetricsSnapshot copies the current counters and histograms.
func (p *Portal) MetricsSnapshot() MetricsSnapshot {
	if p == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return p.metrics.Snapshot()
}

// Routes returns the compiled route table.
func (p *Portal) Routes() *RouteTable {
	if p == nil {
		return nil
	}
	return p.routes
}

// Config returns a copy of the active configuration.
func (p *Portal) Config() Config {
	if p == nil {
		return Config{}
	}
	return cloneConfig(p.config)
}

// Ping checks that Redis answers.
func (p *Portal) Ping(ctx context.Context) error {
	if p == nil || p.sessionStore == nil {
		return ErrPortalNotReady
	}
	_, err := p.sessionStore.Ping(ctx)
	return err
}

func (p *Portal) metricInc(id MetricID) {
	if p == nil {
		return
	}
	p.metrics.Inc(id)
}

/*
====================================
SESSION LIFECYCLE
====================================
*/

// Login checks the credentials with the backend, stores a session record and
// signs a token for it. Redirect is the home path of the user's role.
//
// Repeated failures for the same email (or client IP) lock logins for the
// configured cooldown and return ErrRateLimited without calling the backend.
func (p *Portal) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if p == nil || p.backend == nil {
		return LoginResult{}, ErrPortalNotReady
	}

	email, err := flows.ValidateEmail(email)
	if err != nil {
		p.metricInc(MetricLoginFailure)
		return LoginResult{}, err
	}
	if password == "" {
		p.metricInc(MetricLoginFailure)
		return LoginResult{}, ErrInvalidCredentials
	}
	ip := clientIPFromContext(ctx)
	meta := func() map[string]string { return map[string]string{"email": flows.MaskEmail(email)} }

	if err := p.rateLimiter.Allow(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			p.metricInc(MetricLoginRateLimited)
			p.emitAudit(ctx, auditRecord{event: AuditLogin, err: ErrRateLimited, meta: meta})
			return LoginResult{}, ErrRateLimited
		}
		return LoginResult{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	user, err := callBackend(ctx, p, func(ctx context.Context) (User, error) {
		return p.backend.Login(ctx, email, password)
	})
	if err != nil {
		p.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrBackendRejected) {
			if incErr := p.rateLimiter.Fail(ctx, email, ip); incErr != nil && !errors.Is(incErr, rate.ErrRateLimited) {
				p.logger.Warn("login failure not counted", "error", incErr)
			}
			p.emitAudit(ctx, auditRecord{event: AuditLogin, err: ErrInvalidCredentials, meta: meta})
			return LoginResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		p.emitAudit(ctx, auditRecord{event: AuditLogin, err: ErrTransport, meta: meta})
		return LoginResult{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if user.ID == "" {
		p.metricInc(MetricLoginFailure)
		return LoginResult{}, fmt.Errorf("%w: backend returned no user id", ErrTransport)
	}

	if err := p.rateLimiter.Succeed(ctx, email); err != nil {
		p.logger.Warn("login counter not reset", "error", err)
	}

	token, err := p.createSession(ctx, user)
	if err != nil {
		p.metricInc(MetricLoginFailure)
		p.emitAudit(ctx, auditRecord{event: AuditLogin, user: &user, err: ErrSessionCreationFailed, meta: meta})
		return LoginResult{}, err
	}

	p.metricInc(MetricLoginSuccess)
	p.emitAudit(ctx, auditRecord{event: AuditLogin, user: &user, success: true, meta: meta})

	return LoginResult{
		Token:    token,
		Session:  Session{Authenticated: true, User: &user},
		Redirect: ResolveHome(user.Role),
	}, nil
}

func (p *Portal) createSession(ctx context.Context, user User) (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	now := time.Now()
	rec := &session.Session{
		SessionID: sid,
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role.String(),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(p.config.Session.AbsoluteLifetime).Unix(),
	}
	if err := p.sessionStore.Save(ctx, rec, p.config.Session.TTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	token, err := p.jwtManager.Issue(user.ID, rec.SessionID, user.Role.String())
	if err != nil {
		if delErr := p.sessionStore.Delete(ctx, rec.SessionID); delErr != nil {
			p.logger.Warn("orphan session not removed", "error", delErr)
		}
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	p.metricInc(MetricSessionCreated)
	return token, nil
}

// Logout deletes the session behind token. Unknown, expired and malformed
// tokens are not an error.
func (p *Portal) Logout(ctx context.Context, token string) error {
	if p == nil || p.jwtManager == nil {
		return ErrPortalNotReady
	}
	claims, err := p.jwtManager.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	if err := p.sessionStore.Delete(ctx, claims.SID); err != nil {
		p.logger.Warn("session delete failed", "error", err)
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	p.metricInc(MetricLogout)
	p.emitAudit(ctx, auditRecord{
		event:   AuditLogout,
		userID:  claims.Subject,
		success: true,
	})
	return nil
}

// SessionFromToken resolves the session carried by token. It never fails: a
// missing, invalid or revoked token yields Anonymous, and an unrecognised
// role yields an authenticated session with RoleUnknown.
func (p *Portal) SessionFromToken(ctx context.Context, token string) Session {
	token = strings.TrimSpace(token)
	if p == nil || p.jwtManager == nil || token == "" {
		return Anonymous
	}

	claims, err := p.jwtManager.Parse(token)
	if err != nil || !internal.ValidSessionID(claims.SID) {
		p.metricInc(MetricSessionRejected)
		return Anonymous
	}

	rec, err := p.sessionStore.Get(ctx, claims.SID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			p.logger.Warn("session lookup failed", "error", err)
		}
		p.metricInc(MetricSessionRejected)
		return Anonymous
	}
	if rec.UserID != claims.Subject {
		p.metricInc(MetricSessionRejected)
		return Anonymous
	}

	role, _ := ParseRole(rec.Role)
	return Session{
		Authenticated: true,
		User: &User{
			ID:    rec.UserID,
			Name:  rec.Name,
			Email: rec.Email,
			Role:  role,
		},
	}
}

// LogoutAll revokes every session of the user behind token and reports how
// many were removed. An invalid token revokes nothing.
func (p *Portal) LogoutAll(ctx context.Context, token string) (int, error) {
	if p == nil || p.jwtManager == nil {
		return 0, ErrPortalNotReady
	}
	claims, err := p.jwtManager.Parse(strings.TrimSpace(token))
	if err != nil {
		return 0, nil
	}
	n, err := p.sessionStore.RevokeUser(ctx, claims.Subject)
	if err != nil {
		p.logger.Warn("session revoke failed", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	p.metricInc(MetricLogout)
	p.emitAudit(ctx, auditRecord{
		event:   AuditLogout,
		userID:  claims.Subject,
		success: true,
		meta: func() map[string]string {
			return map[string]string{"scope": "all", "revoked": strconv.Itoa(n)}
		},
	})
	return n, nil
}

/*
====================================
NAVIGATION
====================================
*/

// Navigate guards one navigation to path and records the outcome.
func (p *Portal) Navigate(ctx context.Context, sess Session, path string) Decision {
	if p == nil {
		return redirectTo(PathLogin)
	}
	d := Navigate(p.routes, sess, path)

	switch {
	case d.Render():
		p.metricInc(MetricGuardRender)
		return d
	case d.Target == PathLogin:
		p.metricInc(MetricGuardRedirectLogin)
	case d.Target == PathNotFound:
		p.metricInc(MetricGuardNotFound)
	default:
		p.metricInc(MetricGuardRedirectHome)
	}

	p.emitAudit(ctx, auditRecord{
		event:   AuditGuardRedirect,
		user:    sess.User,
		path:    normalizePath(path),
		success: true,
		meta: func() map[string]string {
			return map[string]string{"target": d.Target}
		},
	})
	return d
}

// PostLoginTarget picks the landing path of a fresh session, honouring
// returnTo when the session may render it.
func (p *Portal) PostLoginTarget(sess Session, returnTo string) string {
	if p == nil {
		return ResolveHome(sess.Role())
	}
	return PostLoginTarget(p.routes, sess, returnTo)
}

/*
====================================
BACKEND CALLS
====================================
*/

// callBackend runs fn under the configured call timeout and records its
// latency. A deadline hit surfaces as a transport failure.
func callBackend[T any](ctx context.Context, p *Portal, fn func(context.Context) (T, error)) (T, error) {
	timeout := p.config.Flows.CallTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().Flows.CallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := fn(callCtx)
	p.metrics.Observe(MetricBackendLatency, time.Since(start))

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		return zero, fmt.Errorf("%w: backend call timed out after %s", ErrTransport, timeout)
	}
	return out, err
}

// limiterError maps a limiter failure onto the flow error vocabulary.
func limiterError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
