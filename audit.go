package goPortal

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goPortal/internal/audit"
)

// Audit event types emitted by the Portal.
const (
	AuditLogin            = "login"
	AuditLogout           = "logout"
	AuditGuardRedirect    = "guard_redirect"
	AuditIdentify         = "verification_identify"
	AuditConfirmOwnership = "verification_confirm_ownership"
	AuditRequestAccess    = "verification_request_access"
	AuditSendCode         = "recovery_send_code"
	AuditVerifyCode       = "recovery_verify_code"
	AuditResetPassword    = "recovery_reset_password"
)

type (
	AuditEvent    = audit.Event
	AuditStats    = audit.Stats
	AuditSink     = audit.Sink
	NoOpSink      = audit.NoOpSink
	ChannelSink   = audit.ChannelSink
	JSONLinesSink = audit.JSONLinesSink
	AuditSinkFunc = audit.SinkFunc
	SlogSink      = audit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONLinesSink writes each audit event to w as one JSON line.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return audit.NewJSONLinesSink(w)
}

// TeeAuditSinks hands each event to every non-nil sink in order.
func TeeAuditSinks(sinks ...AuditSink) AuditSink {
	return audit.Tee(sinks...)
}

// NewSlogSink logs audit events through logger (slog.Default when nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}
