package goPortal

import (
	"errors"

	"github.com/MrEthical07/goPortal/internal/flows"
)

// Inline messages shown on the originating step.
const (
	MessageTryLater    = flows.MessageTryLater
	MessageRateLimited = flows.MessageRateLimited
)

var (
	// ErrValidation wraps every local validation failure. Validation errors are
	// never sent to the backend.
	ErrValidation = flows.ErrValidation
	// ErrIdentificationTooShort is returned when the identifier has fewer than 10 digits.
	ErrIdentificationTooShort = flows.ErrIdentificationTooShort
	// ErrEmailInvalid is returned for an empty or malformed email address.
	ErrEmailInvalid = flows.ErrEmailInvalid
	// ErrPasswordPolicy is returned when a new-user password misses the strength policy.
	ErrPasswordPolicy = flows.ErrPasswordPolicy
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = flows.ErrPasswordMismatch
	// ErrPasswordTooShort is returned when a reset password is under the minimum length.
	ErrPasswordTooShort = flows.ErrPasswordTooShort
	// ErrNoCompanySelected is returned when an access request selects no company.
	ErrNoCompanySelected = flows.ErrNoCompanySelected
	// ErrCompanyUnavailable is returned when toggling an unknown or already granted company.
	ErrCompanyUnavailable = flows.ErrCompanyUnavailable
	// ErrCodeIncomplete is returned when a verification code has empty slots.
	ErrCodeIncomplete = flows.ErrCodeIncomplete
	// ErrEmailNotRegistered is returned when recovery targets an unknown email.
	ErrEmailNotRegistered = flows.ErrEmailNotRegistered
	// ErrCodeRejected is returned when the backend reports the code as invalid.
	ErrCodeRejected = flows.ErrCodeRejected

	// ErrBackendRejected marks a call that reached the backend and was refused.
	ErrBackendRejected = flows.ErrBackendRejected
	// ErrTransport marks a call that failed before the backend answered.
	ErrTransport = flows.ErrTransport
	// ErrRateLimited is returned when a flow submission exceeds its attempt budget.
	ErrRateLimited = flows.ErrRateLimited

	// ErrInvalidTransition is returned for events the current step does not accept.
	ErrInvalidTransition = flows.ErrInvalidTransition
	// ErrSubmissionInFlight is returned when a flow already has a call outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrFlowSuperseded is returned when the flow moved back while a call was pending.
	ErrFlowSuperseded = errors.New("flow moved on while the call was pending")

	// ErrInvalidCredentials is returned by Login when the backend refuses the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionCreationFailed is returned when the session record cannot be stored.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionUnavailable is returned when Redis fails outside a flow call.
	ErrSessionUnavailable = errors.New("session store unavailable")
	// ErrPortalNotReady is returned by methods of a Portal not built through Builder.
	ErrPortalNotReady = errors.New("portal not initialized")
)

// RejectedError carries the message of a backend-reported failure.
type RejectedError = flows.RejectedError

// Reject builds a [*RejectedError] with message.
func Reject(message string) error {
	return &flows.RejectedError{Message: message}
}
