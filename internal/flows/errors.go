package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	MessageTryLater    = "Something went wrong. Please try again later."
	MessageRateLimited = "Too many attempts. Please wait a moment and try again."
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrIdentificationTooShort = fmt.Errorf("%w: identification must have at least %d digits", ErrValidation, MinIdentificationDigits)
	ErrEmailInvalid           = fmt.Errorf("%w: email address is invalid", ErrValidation)
	ErrPasswordPolicy         = fmt.Errorf("%w: password does not meet the policy", ErrValidation)
	ErrPasswordMismatch       = fmt.Errorf("%w: passwords do not match", ErrValidation)
	ErrPasswordTooShort       = fmt.Errorf("%w: password must have at least %d characters", ErrValidation, MinResetPasswordLength)
	ErrNoCompanySelected      = fmt.Errorf("%w: select at least one company", ErrValidation)
	ErrCompanyUnavailable     = fmt.Errorf("%w: company cannot be selected", ErrValidation)
	ErrCodeIncomplete         = fmt.Errorf("%w: enter all %d digits of the code", ErrValidation, CodeLength)

	ErrBackendRejected    = errors.New("rejected by backend")
	ErrEmailNotRegistered = fmt.Errorf("%w: email is not registered", ErrBackendRejected)
	ErrCodeRejected       = fmt.Errorf("%w: verification code is invalid", ErrBackendRejected)

	ErrTransport         = errors.New("backend unreachable")
	ErrRateLimited       = errors.New("flow rate limited")
	ErrInvalidTransition = errors.New("invalid flow transition")
)

// RejectedError is a backend-reported failure: the call reached the backend,
// which answered {success:false, message}.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e == nil || e.Message == "" {
		return ErrBackendRejected.Error()
	}
	return "rejected by backend: " + e.Message
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrBackendRejected
}

// classifyCallError maps a backend call error to the error returned to the
// caller and the inline message shown on the step.
func classifyCallError(err error) (error, string) {
	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected):
		msg := rejected.Message
		if msg == "" {
			msg = MessageTryLater
		}
		return err, msg
	case errors.Is(err, ErrRateLimited):
		return err, MessageRateLimited
	case errors.Is(err, ErrTransport), errors.Is(err, context.Canceled):
		return err, MessageTryLater
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err), MessageTryLater
	}
}

// validationMessage strips the sentinel prefix so the inline text reads as a
// sentence.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
