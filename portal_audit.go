package goPortal

import (
	"context"
	"errors"
)

type auditRecord struct {
	event   string
	flow    string
	user    *User
	userID  string
	path    string
	success bool
	err     error
	meta    func() map[string]string
}

func (p *Portal) emitAudit(ctx context.Context, r auditRecord) {
	if p == nil || p.audit == nil {
		return
	}

	ev := AuditEvent{
		EventType: r.event,
		UserID:    r.userID,
		Flow:      r.flow,
		Path:      r.path,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   r.success,
		Error:     auditErrorCode(r.err),
	}
	if r.user != nil {
		ev.UserID = r.user.ID
		ev.Role = r.user.Role.String()
	}
	if r.meta != nil {
		ev.Metadata = r.meta()
	}

	p.audit.Emit(ctx, ev)
}

// flowAuditor adapts emitAudit to the callback shape the flow runners take.
func (p *Portal) flowAuditor(flow string) func(context.Context, string, bool, error, func() map[string]string) {
	return func(ctx context.Context, event string, success bool, err error, meta func() map[string]string) {
		p.emitAudit(ctx, auditRecord{
			event:   event,
			flow:    flow,
			success: success,
			err:     err,
			meta:    meta,
		})
	}
}

func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrEmailNotRegistered):
		return "email_not_registered"
	case errors.Is(err, ErrCodeRejected):
		return "code_rejected"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrBackendRejected):
		return "rejected"
	case errors.Is(err, ErrSessionCreationFailed):
		return "session_creation_failed"
	case errors.Is(err, ErrSessionUnavailable):
		return "session_unavailable"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal_error"
	}
}
