package flows

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/MrEthical07/goPortal/password"
)

type VerificationMetrics struct {
	IdentifySuccess      int
	IdentifyFailure      int
	OwnershipSuccess     int
	OwnershipFailure     int
	AccessRequestSuccess int
	AccessRequestFailure int
	ValidationFailure    int
	RateLimited          int
}

type VerificationEvents struct {
	Identify         string
	ConfirmOwnership string
	RequestAccess    string
}

// IdentityLookup is the backend answer to an identification lookup.
type IdentityLookup struct {
	UserExists  bool
	MaskedEmail string
	Companies   []Company
}

// AccessSubmission is the access-request payload built from the state.
type AccessSubmission struct {
	Identification string
	Email          string
	Companies      []string
	IsNewUser      bool
	Password       string
}

type VerificationDeps struct {
	CheckIdentifyLimiter func(context.Context, string) error

	VerifyIdentification func(context.Context, string) (IdentityLookup, error)
	VerifyExistingEmail  func(context.Context, string, string) error
	RequestAccess        func(context.Context, AccessSubmission) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, error, func() map[string]string)

	Metrics VerificationMetrics
	Events  VerificationEvents
}

// RunIdentify validates the identifier held in s, looks it up and returns the
// outcome event. Validation failures never reach the backend.
func RunIdentify(ctx context.Context, s VerificationState, deps VerificationDeps) (VerificationEvent, error) {
	normalizeVerificationDeps(&deps)

	if s.Step != StepIdentify {
		return nil, ErrInvalidTransition
	}
	id := SanitizeIdentification(s.Identification)
	if len(id) < MinIdentificationDigits {
		return verificationInvalid(deps, ErrIdentificationTooShort)
	}

	if deps.CheckIdentifyLimiter != nil {
		if err := deps.CheckIdentifyLimiter(ctx, id); err != nil {
			return verificationCallFailed(ctx, deps, deps.Events.Identify, deps.Metrics.IdentifyFailure, err, identMeta(id))
		}
	}

	res, err := deps.VerifyIdentification(ctx, id)
	if err != nil {
		return verificationCallFailed(ctx, deps, deps.Events.Identify, deps.Metrics.IdentifyFailure, err, identMeta(id))
	}

	deps.MetricInc(deps.Metrics.IdentifySuccess)
	deps.EmitAudit(ctx, deps.Events.Identify, true, nil, func() map[string]string {
		return map[string]string{
			"identification": MaskIdentification(id),
			"user_exists":    strconv.FormatBool(res.UserExists),
		}
	})
	return IdentityResolved{
		Identification: id,
		UserExists:     res.UserExists,
		MaskedEmail:    res.MaskedEmail,
		Companies:      res.Companies,
	}, nil
}

// RunConfirmOwnership checks the re-entered email of an existing user.
func RunConfirmOwnership(ctx context.Context, s VerificationState, deps VerificationDeps) (VerificationEvent, error) {
	normalizeVerificationDeps(&deps)

	if s.Step != StepVerifyOrJoin || s.Mode != ModeExistingUser {
		return nil, ErrInvalidTransition
	}
	email, err := ValidateEmail(s.Email)
	if err != nil {
		return verificationInvalid(deps, err)
	}

	if err := deps.VerifyExistingEmail(ctx, s.Identification, email); err != nil {
		return verificationCallFailed(ctx, deps, deps.Events.ConfirmOwnership, deps.Metrics.OwnershipFailure, err, identMeta(s.Identification))
	}

	deps.MetricInc(deps.Metrics.OwnershipSuccess)
	deps.EmitAudit(ctx, deps.Events.ConfirmOwnership, true, nil, identMeta(s.Identification))
	return OwnershipConfirmed{Email: email}, nil
}

// RunSubmitNewUser validates the new-user form and requests access with a
// password.
func RunSubmitNewUser(ctx context.Context, s VerificationState, deps VerificationDeps) (VerificationEvent, error) {
	normalizeVerificationDeps(&deps)

	if s.Step != StepVerifyOrJoin || s.Mode != ModeNewUser {
		return nil, ErrInvalidTransition
	}
	email, err := ValidateEmail(s.Email)
	if err != nil {
		return verificationInvalid(deps, err)
	}
	if !password.Evaluate(s.Password).Satisfied() {
		return verificationInvalid(deps, ErrPasswordPolicy)
	}
	if s.Password != s.ConfirmPassword {
		return verificationInvalid(deps, ErrPasswordMismatch)
	}
	if len(s.SelectedCompanies) == 0 {
		return verificationInvalid(deps, ErrNoCompanySelected)
	}

	return requestAccess(ctx, deps, AccessSubmission{
		Identification: s.Identification,
		Email:          email,
		Companies:      append([]string(nil), s.SelectedCompanies...),
		IsNewUser:      true,
		Password:       s.Password,
	})
}

// RunRequestAdditionalAccess requests more companies for an existing user.
// No password is sent.
func RunRequestAdditionalAccess(ctx context.Context, s VerificationState, deps VerificationDeps) (VerificationEvent, error) {
	normalizeVerificationDeps(&deps)

	if s.Step != StepAddAccess || s.Mode != ModeExistingUser {
		return nil, ErrInvalidTransition
	}
	if len(s.SelectedCompanies) == 0 {
		return verificationInvalid(deps, ErrNoCompanySelected)
	}

	return requestAccess(ctx, deps, AccessSubmission{
		Identification: s.Identification,
		Email:          strings.TrimSpace(s.Email),
		Companies:      append([]string(nil), s.SelectedCompanies...),
		IsNewUser:      false,
	})
}

func requestAccess(ctx context.Context, deps VerificationDeps, sub AccessSubmission) (VerificationEvent, error) {
	meta := func() map[string]string {
		return map[string]string{
			"identification": MaskIdentification(sub.Identification),
			"companies":      strings.Join(sub.Companies, ","),
			"new_user":       strconv.FormatBool(sub.IsNewUser),
		}
	}
	if err := deps.RequestAccess(ctx, sub); err != nil {
		return verificationCallFailed(ctx, deps, deps.Events.RequestAccess, deps.Metrics.AccessRequestFailure, err, meta)
	}

	deps.MetricInc(deps.Metrics.AccessRequestSuccess)
	deps.EmitAudit(ctx, deps.Events.RequestAccess, true, nil, meta)
	return AccessGranted{Email: sub.Email, Companies: sub.Companies}, nil
}

func verificationInvalid(deps VerificationDeps, err error) (VerificationEvent, error) {
	deps.MetricInc(deps.Metrics.ValidationFailure)
	return VerificationFailed{Message: validationMessage(err)}, err
}

func verificationCallFailed(
	ctx context.Context,
	deps VerificationDeps,
	event string,
	metric int,
	err error,
	meta func() map[string]string,
) (VerificationEvent, error) {
	mapped, msg := classifyCallError(err)
	if errors.Is(mapped, ErrRateLimited) {
		deps.MetricInc(deps.Metrics.RateLimited)
	} else {
		deps.MetricInc(metric)
	}
	deps.EmitAudit(ctx, event, false, mapped, meta)
	return VerificationFailed{Message: msg}, mapped
}

func normalizeVerificationDeps(deps *VerificationDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, error, func() map[string]string) {}
	}
	if deps.VerifyIdentification == nil {
		deps.VerifyIdentification = func(context.Context, string) (IdentityLookup, error) {
			return IdentityLookup{}, ErrTransport
		}
	}
	if deps.VerifyExistingEmail == nil {
		deps.VerifyExistingEmail = func(context.Context, string, string) error { return ErrTransport }
	}
	if deps.RequestAccess == nil {
		deps.RequestAccess = func(context.Context, AccessSubmission) error { return ErrTransport }
	}
}

func identMeta(id string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"identification": MaskIdentification(id)}
	}
}

// ValidateEmail trims and checks a bare email address.
func ValidateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// MaskIdentification keeps the last four digits for audit output.
func MaskIdentification(id string) string {
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}
