package flows

import (
	"context"
	"errors"
	"unicode/utf8"
)

const (
	messageEmailNotRegistered = "No account is registered with this email."
	messageCodeRejected       = "The code is invalid or has expired."
	statusCodeSent            = "We sent a verification code to your email."
	statusCodeResent          = "A new code is on its way."
	statusPasswordReplaced    = "Your password was updated. Redirecting to login."
)

type RecoveryMetrics struct {
	CodeSent          int
	CodeSendFailure   int
	CodeAccepted      int
	CodeRejected      int
	ResetSuccess      int
	ResetFailure      int
	ValidationFailure int
	RateLimited       int
}

type RecoveryEvents struct {
	SendCode   string
	VerifyCode string
	Reset      string
}

type RecoveryDeps struct {
	CheckSendLimiter   func(context.Context, string) error
	CheckVerifyLimiter func(context.Context, string) error

	VerifyEmailExists    func(context.Context, string) (bool, error)
	SendVerificationCode func(context.Context, string) error
	VerifyCode           func(context.Context, string, string) (bool, error)
	ResetPassword        func(context.Context, string, string, string) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, error, func() map[string]string)

	Metrics RecoveryMetrics
	Events  RecoveryEvents
}

// RunSendCode confirms the email exists and only then asks the backend to
// send a code. The two calls are strictly sequential.
func RunSendCode(ctx context.Context, s RecoveryState, deps RecoveryDeps) (RecoveryEvent, error) {
	normalizeRecoveryDeps(&deps)

	if s.Step != StepRecoveryEmail {
		return nil, ErrInvalidTransition
	}
	email, err := ValidateEmail(s.Email)
	if err != nil {
		return recoveryInvalid(deps, err)
	}
	meta := emailMeta(email)

	if deps.CheckSendLimiter != nil {
		if err := deps.CheckSendLimiter(ctx, email); err != nil {
			return recoveryCallFailed(ctx, deps, deps.Events.SendCode, deps.Metrics.CodeSendFailure, err, meta)
		}
	}

	exists, err := deps.VerifyEmailExists(ctx, email)
	if err != nil {
		return recoveryCallFailed(ctx, deps, deps.Events.SendCode, deps.Metrics.CodeSendFailure, err, meta)
	}
	if !exists {
		deps.MetricInc(deps.Metrics.CodeSendFailure)
		deps.EmitAudit(ctx, deps.Events.SendCode, false, ErrEmailNotRegistered, meta)
		return RecoveryFailed{Message: messageEmailNotRegistered}, ErrEmailNotRegistered
	}

	return sendCode(ctx, deps, email, statusCodeSent)
}

// RunResendCode re-triggers the send on the code step without changing step.
func RunResendCode(ctx context.Context, s RecoveryState, deps RecoveryDeps) (RecoveryEvent, error) {
	normalizeRecoveryDeps(&deps)

	if s.Step != StepRecoveryCode {
		return nil, ErrInvalidTransition
	}
	if deps.CheckSendLimiter != nil {
		if err := deps.CheckSendLimiter(ctx, s.Email); err != nil {
			return recoveryCallFailed(ctx, deps, deps.Events.SendCode, deps.Metrics.CodeSendFailure, err, emailMeta(s.Email))
		}
	}
	return sendCode(ctx, deps, s.Email, statusCodeResent)
}

func sendCode(ctx context.Context, deps RecoveryDeps, email, status string) (RecoveryEvent, error) {
	meta := emailMeta(email)
	if err := deps.SendVerificationCode(ctx, email); err != nil {
		return recoveryCallFailed(ctx, deps, deps.Events.SendCode, deps.Metrics.CodeSendFailure, err, meta)
	}
	deps.MetricInc(deps.Metrics.CodeSent)
	deps.EmitAudit(ctx, deps.Events.SendCode, true, nil, meta)
	return CodeSent{Email: email, Status: status}, nil
}

// RunVerifyCode sends the joined code once all slots are filled. An
// incomplete code fails locally without a backend call.
func RunVerifyCode(ctx context.Context, s RecoveryState, deps RecoveryDeps) (RecoveryEvent, error) {
	normalizeRecoveryDeps(&deps)

	if s.Step != StepRecoveryCode {
		return nil, ErrInvalidTransition
	}
	if !s.Code.Complete() {
		return recoveryInvalid(deps, ErrCodeIncomplete)
	}
	meta := emailMeta(s.Email)

	if deps.CheckVerifyLimiter != nil {
		if err := deps.CheckVerifyLimiter(ctx, s.Email); err != nil {
			return recoveryCallFailed(ctx, deps, deps.Events.VerifyCode, deps.Metrics.CodeRejected, err, meta)
		}
	}

	valid, err := deps.VerifyCode(ctx, s.Email, s.Code.String())
	if err != nil {
		return recoveryCallFailed(ctx, deps, deps.Events.VerifyCode, deps.Metrics.CodeRejected, err, meta)
	}
	if !valid {
		deps.MetricInc(deps.Metrics.CodeRejected)
		deps.EmitAudit(ctx, deps.Events.VerifyCode, false, ErrCodeRejected, meta)
		return RecoveryFailed{Message: messageCodeRejected}, ErrCodeRejected
	}

	deps.MetricInc(deps.Metrics.CodeAccepted)
	deps.EmitAudit(ctx, deps.Events.VerifyCode, true, nil, meta)
	return CodeAccepted{Code: s.Code}, nil
}

// RunResetPassword checks the local rules (match, then minimum length) and
// replaces the password.
func RunResetPassword(ctx context.Context, s RecoveryState, deps RecoveryDeps) (RecoveryEvent, error) {
	normalizeRecoveryDeps(&deps)

	if s.Step != StepRecoveryReset {
		return nil, ErrInvalidTransition
	}
	if s.Password != s.ConfirmPassword {
		return recoveryInvalid(deps, ErrPasswordMismatch)
	}
	if utf8.RuneCountInString(s.Password) < MinResetPasswordLength {
		return recoveryInvalid(deps, ErrPasswordTooShort)
	}
	meta := emailMeta(s.Email)

	if err := deps.ResetPassword(ctx, s.Email, s.Code.String(), s.Password); err != nil {
		return recoveryCallFailed(ctx, deps, deps.Events.Reset, deps.Metrics.ResetFailure, err, meta)
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.Reset, true, nil, meta)
	return PasswordReplaced{Status: statusPasswordReplaced}, nil
}

func recoveryInvalid(deps RecoveryDeps, err error) (RecoveryEvent, error) {
	deps.MetricInc(deps.Metrics.ValidationFailure)
	return RecoveryFailed{Message: validationMessage(err)}, err
}

func recoveryCallFailed(
	ctx context.Context,
	deps RecoveryDeps,
	event string,
	metric int,
	err error,
	meta func() map[string]string,
) (RecoveryEvent, error) {
	mapped, msg := classifyCallError(err)
	if errors.Is(mapped, ErrRateLimited) {
		deps.MetricInc(deps.Metrics.RateLimited)
	} else {
		deps.MetricInc(metric)
	}
	deps.EmitAudit(ctx, event, false, mapped, meta)
	return RecoveryFailed{Message: msg}, mapped
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, error, func() map[string]string) {}
	}
	if deps.VerifyEmailExists == nil {
		deps.VerifyEmailExists = func(context.Context, string) (bool, error) { return false, ErrTransport }
	}
	if deps.SendVerificationCode == nil {
		deps.SendVerificationCode = func(context.Context, string) error { return ErrTransport }
	}
	if deps.VerifyCode == nil {
		deps.VerifyCode = func(context.Context, string, string) (bool, error) { return false, ErrTransport }
	}
	if deps.ResetPassword == nil {
		deps.ResetPassword = func(context.Context, string, string, string) error { return ErrTransport }
	}
}

func emailMeta(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": MaskEmail(email)}
	}
}

// MaskEmail hides the local part of email except its first and last
// characters: "alice@example.com" becomes "a***e@example.com".
func MaskEmail(email string) string {
	at := -1
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			at = i
			break
		}
	}
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + domain
}
