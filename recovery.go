package goPortal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goPortal/internal/flows"
)

const flowRecovery = "recovery"

// Recovery wizard steps.
const (
	StepRecoveryEmail = flows.StepRecoveryEmail
	StepRecoveryCode  = flows.StepRecoveryCode
	StepRecoveryReset = flows.StepRecoveryReset
)

type (
	// RecoveryState is a snapshot of the forgotten-password wizard.
	RecoveryState = flows.RecoveryState
	// CodeSlots holds the six single-digit inputs of the code step.
	CodeSlots = flows.CodeSlots
)

// Completion tells the caller where to go once the password was replaced,
// and how long to show the success status first.
type Completion struct {
	Redirect string
	After    time.Duration
}

// RecoveryFlow drives one visitor through password recovery: email, code,
// new password.
type RecoveryFlow struct {
	portal   *Portal
	mu       sync.Mutex
	state    flows.RecoveryState
	inFlight atomic.Bool
}

// NewRecovery starts a recovery flow on the email step.
func (p *Portal) NewRecovery() *RecoveryFlow {
	return &RecoveryFlow{
		portal: p,
		state:  flows.NewRecoveryState(),
	}
}

// State returns a copy of the current state.
func (f *RecoveryFlow) State() RecoveryState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// InFlight reports whether a submission is outstanding.
func (f *RecoveryFlow) InFlight() bool {
	return f.inFlight.Load()
}

// EditEmail replaces the email input of the first step.
func (f *RecoveryFlow) EditEmail(email string) error {
	return f.apply(flows.RecoveryEmailEdited{Email: email})
}

// TypeDigit writes text into slot index and moves focus right. Longer text
// is handled as a paste.
func (f *RecoveryFlow) TypeDigit(index int, text string) error {
	return f.apply(flows.DigitTyped{Index: index, Text: text})
}

// Paste spreads the digits of text over the slots starting at index.
func (f *RecoveryFlow) Paste(index int, text string) error {
	return f.apply(flows.DigitsPasted{Index: index, Text: text})
}

// Erase is backspace on slot index.
func (f *RecoveryFlow) Erase(index int) error {
	return f.apply(flows.DigitErased{Index: index})
}

// EditPasswords replaces both inputs of the password step.
func (f *RecoveryFlow) EditPasswords(password, confirm string) error {
	return f.apply(flows.RecoveryPasswordEdited{Password: password, Confirm: confirm})
}

// SubmitEmail confirms the email is registered, sends a code and moves to
// the code step.
func (f *RecoveryFlow) SubmitEmail(ctx context.Context) error {
	return f.submit(ctx, flows.RunSendCode)
}

// Resend sends a new code without leaving the code step.
func (f *RecoveryFlow) Resend(ctx context.Context) error {
	return f.submit(ctx, flows.RunResendCode)
}

// SubmitCode checks the six digits and moves to the password step.
func (f *RecoveryFlow) SubmitCode(ctx context.Context) error {
	return f.submit(ctx, flows.RunVerifyCode)
}

// SubmitPassword replaces the password and completes the flow.
func (f *RecoveryFlow) SubmitPassword(ctx context.Context) (Completion, error) {
	if err := f.submit(ctx, flows.RunResetPassword); err != nil {
		return Completion{}, err
	}
	return Completion{
		Redirect: PathLogin,
		After:    f.portal.config.Recovery.RedirectDelay,
	}, nil
}

// Back steps back one screen keeping entered values, or exits from the email
// step. exited tells the caller to navigate to the login screen.
func (f *RecoveryFlow) Back() (exited bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := flows.ReduceRecovery(f.state, flows.RecoveryBack{})
	if err != nil {
		return false, err
	}
	f.state = next
	return next.Exited, nil
}

func (f *RecoveryFlow) apply(ev flows.RecoveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := flows.ReduceRecovery(f.state, ev)
	if err != nil {
		return err
	}
	f.state = next
	return nil
}

type recoveryRunner func(context.Context, flows.RecoveryState, flows.RecoveryDeps) (flows.RecoveryEvent, error)

func (f *RecoveryFlow) submit(ctx context.Context, run recoveryRunner) error {
	if !f.inFlight.CompareAndSwap(false, true) {
		f.portal.metricInc(MetricDuplicateSubmission)
		return ErrSubmissionInFlight
	}
	defer f.inFlight.Store(false)

	f.mu.Lock()
	snapshot := f.state
	f.mu.Unlock()

	ev, runErr := run(ctx, snapshot, f.portal.recoveryDeps())
	if ev == nil {
		return runErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Generation != snapshot.Generation || f.state.Exited {
		f.portal.metricInc(MetricFlowSuperseded)
		return ErrFlowSuperseded
	}
	next, err := flows.ReduceRecovery(f.state, ev)
	if err != nil {
		return err
	}
	f.state = next
	return runErr
}

func (p *Portal) recoveryDeps() flows.RecoveryDeps {
	return flows.RecoveryDeps{
		CheckSendLimiter: func(ctx context.Context, email string) error {
			return limiterError(p.flowLimiter.CheckCodeSend(ctx, email, clientIPFromContext(ctx)))
		},
		CheckVerifyLimiter: func(ctx context.Context, email string) error {
			return limiterError(p.flowLimiter.CheckCodeVerify(ctx, email, clientIPFromContext(ctx)))
		},
		VerifyEmailExists: func(ctx context.Context, email string) (bool, error) {
			return callBackend(ctx, p, func(ctx context.Context) (bool, error) {
				return p.backend.VerifyEmailExists(ctx, email)
			})
		},
		SendVerificationCode: func(ctx context.Context, email string) error {
			_, err := callBackend(ctx, p, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, p.backend.SendVerificationCode(ctx, email)
			})
			return err
		},
		VerifyCode: func(ctx context.Context, email, code string) (bool, error) {
			return callBackend(ctx, p, func(ctx context.Context) (bool, error) {
				return p.backend.VerifyCode(ctx, email, code)
			})
		},
		ResetPassword: func(ctx context.Context, email, code, newPassword string) error {
			_, err := callBackend(ctx, p, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, p.backend.ResetPassword(ctx, email, code, newPassword)
			})
			return err
		},
		MetricInc: func(id int) { p.metricInc(MetricID(id)) },
		EmitAudit: p.flowAuditor(flowRecovery),
		Metrics: flows.RecoveryMetrics{
			CodeSent:          int(MetricCodeSent),
			CodeSendFailure:   int(MetricCodeSendFailure),
			CodeAccepted:      int(MetricCodeAccepted),
			CodeRejected:      int(MetricCodeRejected),
			ResetSuccess:      int(MetricPasswordResetSuccess),
			ResetFailure:      int(MetricPasswordResetFailure),
			ValidationFailure: int(MetricRecoveryValidationFailure),
			RateLimited:       int(MetricFlowRateLimited),
		},
		Events: flows.RecoveryEvents{
			SendCode:   AuditSendCode,
			VerifyCode: AuditVerifyCode,
			Reset:      AuditResetPassword,
		},
	}
}
