package goPortal

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goPortal/internal/flows"
)

const flowVerification = "verification"

// Verification wizard steps.
const (
	StepIdentify     = flows.StepIdentify
	StepVerifyOrJoin = flows.StepVerifyOrJoin
	StepAddAccess    = flows.StepAddAccess
	StepConfirmed    = flows.StepConfirmed
)

type (
	// VerificationState is a snapshot of the registration / access-request
	// wizard.
	VerificationState = flows.VerificationState
	// VerificationMode tells whether step 2 serves an existing or a new user.
	VerificationMode = flows.VerificationMode
)

const (
	ModeUnresolved   = flows.ModeUnresolved
	ModeExistingUser = flows.ModeExistingUser
	ModeNewUser      = flows.ModeNewUser
)

// VerificationFlow drives one visitor through identity verification:
// identify, then either confirm ownership and pick more companies (existing
// user) or fill the new-user form, then the confirmation screen.
//
// Edits are accepted at any time. At most one submission runs at a time; a
// Back during a submission discards its outcome.
type VerificationFlow struct {
	portal   *Portal
	mu       sync.Mutex
	state    flows.VerificationState
	inFlight atomic.Bool
}

// NewVerification starts a verification flow on step 1.
func (p *Portal) NewVerification() *VerificationFlow {
	return &VerificationFlow{
		portal: p,
		state:  flows.NewVerificationState(),
	}
}

// State returns a copy of the current state.
func (f *VerificationFlow) State() VerificationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// InFlight reports whether a submission is outstanding.
func (f *VerificationFlow) InFlight() bool {
	return f.inFlight.Load()
}

// EditIdentification replaces the identifier. Non-digits are dropped and the
// value is capped at 13 digits.
func (f *VerificationFlow) EditIdentification(raw string) error {
	return f.apply(flows.IdentificationEdited{Raw: raw})
}

// EditEmail replaces the email of step 2.
func (f *VerificationFlow) EditEmail(email string) error {
	return f.apply(flows.AccessEmailEdited{Email: email})
}

// EditPasswords replaces both password inputs of the new-user form.
func (f *VerificationFlow) EditPasswords(password, confirm string) error {
	return f.apply(flows.AccessPasswordEdited{Password: password, Confirm: confirm})
}

// ToggleCompany adds companyID to the selection, or removes it.
func (f *VerificationFlow) ToggleCompany(companyID string) error {
	return f.apply(flows.CompanyToggled{ID: companyID})
}

// Identify looks the identifier up and moves to step 2.
func (f *VerificationFlow) Identify(ctx context.Context) error {
	return f.submit(ctx, flows.RunIdentify)
}

// ConfirmOwnership checks an existing user's email and moves to step 3.
func (f *VerificationFlow) ConfirmOwnership(ctx context.Context) error {
	return f.submit(ctx, flows.RunConfirmOwnership)
}

// SubmitNewUser sends the new-user access request and moves to step 4.
func (f *VerificationFlow) SubmitNewUser(ctx context.Context) error {
	return f.submit(ctx, flows.RunSubmitNewUser)
}

// RequestAdditionalAccess sends an existing user's access request and moves
// to step 4.
func (f *VerificationFlow) RequestAdditionalAccess(ctx context.Context) error {
	return f.submit(ctx, flows.RunRequestAdditionalAccess)
}

// Back returns to step 1, or exits the flow from step 1. exited tells the
// caller to navigate to the login screen.
func (f *VerificationFlow) Back() (exited bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := flows.ReduceVerification(f.state, flows.VerificationBack{})
	if err != nil {
		return false, err
	}
	f.state = next
	return next.Exited, nil
}

// Finish leaves the confirmation screen and returns the login path.
func (f *VerificationFlow) Finish() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Step != StepConfirmed || f.state.Exited {
		return "", ErrInvalidTransition
	}
	f.state.Exited = true
	return PathLogin, nil
}

func (f *VerificationFlow) apply(ev flows.VerificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := flows.ReduceVerification(f.state, ev)
	if err != nil {
		return err
	}
	f.state = next
	return nil
}

type verificationRunner func(context.Context, flows.VerificationState, flows.VerificationDeps) (flows.VerificationEvent, error)

func (f *VerificationFlow) submit(ctx context.Context, run verificationRunner) error {
	if !f.inFlight.CompareAndSwap(false, true) {
		f.portal.metricInc(MetricDuplicateSubmission)
		return ErrSubmissionInFlight
	}
	defer f.inFlight.Store(false)

	f.mu.Lock()
	snapshot := f.state.Clone()
	f.mu.Unlock()

	ev, runErr := run(ctx, snapshot, f.portal.verificationDeps())
	if ev == nil {
		return runErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Generation != snapshot.Generation || f.state.Exited {
		f.portal.metricInc(MetricFlowSuperseded)
		return ErrFlowSuperseded
	}
	next, err := flows.ReduceVerification(f.state, ev)
	if err != nil {
		return err
	}
	f.state = next
	return runErr
}

func (p *Portal) verificationDeps() flows.VerificationDeps {
	return flows.VerificationDeps{
		CheckIdentifyLimiter: func(ctx context.Context, id string) error {
			return limiterError(p.flowLimiter.CheckIdentify(ctx, id, clientIPFromContext(ctx)))
		},
		VerifyIdentification: func(ctx context.Context, id string) (flows.IdentityLookup, error) {
			res, err := callBackend(ctx, p, func(ctx context.Context) (IdentificationResult, error) {
				return p.backend.VerifyIdentification(ctx, id)
			})
			if err != nil {
				return flows.IdentityLookup{}, err
			}
			return flows.IdentityLookup{
				UserExists:  res.UserExists,
				MaskedEmail: res.MaskedEmail,
				Companies:   res.Companies,
			}, nil
		},
		VerifyExistingEmail: func(ctx context.Context, id, email string) error {
			_, err := callBackend(ctx, p, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, p.backend.VerifyExistingEmail(ctx, id, email)
			})
			return err
		},
		RequestAccess: func(ctx context.Context, sub flows.AccessSubmission) error {
			_, err := callBackend(ctx, p, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, p.backend.RequestAccess(ctx, AccessRequest{
					Identification: sub.Identification,
					Email:          sub.Email,
					Companies:      sub.Companies,
					IsNewUser:      sub.IsNewUser,
					Password:       sub.Password,
				})
			})
			return err
		},
		MetricInc: func(id int) { p.metricInc(MetricID(id)) },
		EmitAudit: p.flowAuditor(flowVerification),
		Metrics: flows.VerificationMetrics{
			IdentifySuccess:      int(MetricIdentifySuccess),
			IdentifyFailure:      int(MetricIdentifyFailure),
			OwnershipSuccess:     int(MetricOwnershipSuccess),
			OwnershipFailure:     int(MetricOwnershipFailure),
			AccessRequestSuccess: int(MetricAccessRequestSuccess),
			AccessRequestFailure: int(MetricAccessRequestFailure),
			ValidationFailure:    int(MetricVerificationValidationFailure),
			RateLimited:          int(MetricFlowRateLimited),
		},
		Events: flows.VerificationEvents{
			Identify:         AuditIdentify,
			ConfirmOwnership: AuditConfirmOwnership,
			RequestAccess:    AuditRequestAccess,
		},
	}
}
