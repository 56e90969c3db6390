package flows

import "strings"

// MinResetPasswordLength is the minimum length of a recovered password.
const MinResetPasswordLength = 6

// Recovery steps.
const (
	StepRecoveryEmail = 1
	StepRecoveryCode  = 2
	StepRecoveryReset = 3
)

// RecoveryState is the value object of the forgotten-password wizard.
type RecoveryState struct {
	Step            int       `json:"step"`
	Email           string    `json:"email"`
	Code            CodeSlots `json:"code"`
	Focus           int       `json:"focus"`
	Password        string    `json:"-"`
	ConfirmPassword string    `json:"-"`
	Error           string    `json:"error,omitempty"`
	Status          string    `json:"status,omitempty"`
	Exited          bool      `json:"exited,omitempty"`
	Completed       bool      `json:"completed,omitempty"`
	Generation      uint64    `json:"-"`
}

// NewRecoveryState returns the state of a freshly mounted wizard.
func NewRecoveryState() RecoveryState {
	return RecoveryState{Step: StepRecoveryEmail}
}

// RecoveryEvent is the closed set of inputs to ReduceRecovery.
type RecoveryEvent interface {
	recoveryEvent()
}

type (
	// RecoveryEmailEdited replaces the email input.
	RecoveryEmailEdited struct{ Email string }
	// DigitTyped writes Text into code slot Index.
	DigitTyped struct {
		Index int
		Text  string
	}
	// DigitsPasted distributes Text from code slot Index.
	DigitsPasted struct {
		Index int
		Text  string
	}
	// DigitErased is backspace on code slot Index.
	DigitErased struct{ Index int }
	// RecoveryPasswordEdited replaces both password inputs.
	RecoveryPasswordEdited struct{ Password, Confirm string }
	// CodeSent is the outcome of a successful send to Email: it advances from
	// the email step, or reports a resend on the code step.
	CodeSent struct{ Email, Status string }
	// CodeAccepted is the outcome of a successful check of Code.
	CodeAccepted struct{ Code CodeSlots }
	// PasswordReplaced is the outcome of a successful reset.
	PasswordReplaced struct{ Status string }
	// RecoveryFailed keeps the step and shows Message inline.
	RecoveryFailed struct{ Message string }
	// RecoveryBack steps back one screen, or exits from the first.
	RecoveryBack struct{}
)

func (RecoveryEmailEdited) recoveryEvent()    {}
func (DigitTyped) recoveryEvent()             {}
func (DigitsPasted) recoveryEvent()           {}
func (DigitErased) recoveryEvent()            {}
func (RecoveryPasswordEdited) recoveryEvent() {}
func (CodeSent) recoveryEvent()               {}
func (CodeAccepted) recoveryEvent()           {}
func (PasswordReplaced) recoveryEvent()       {}
func (RecoveryFailed) recoveryEvent()         {}
func (RecoveryBack) recoveryEvent()           {}

// ReduceRecovery applies ev to s and returns the next state. It never
// modifies s; on error the returned state equals s.
func ReduceRecovery(s RecoveryState, ev RecoveryEvent) (RecoveryState, error) {
	if s.Step < StepRecoveryEmail || s.Step > StepRecoveryReset || s.Exited || s.Completed {
		return s, ErrInvalidTransition
	}
	next := s

	switch e := ev.(type) {
	case RecoveryEmailEdited:
		if s.Step != StepRecoveryEmail {
			return s, ErrInvalidTransition
		}
		next.Email = strings.TrimSpace(e.Email)
		next.Error = ""

	case DigitTyped:
		if s.Step != StepRecoveryCode {
			return s, ErrInvalidTransition
		}
		next.Code, next.Focus = s.Code.SetDigit(e.Index, e.Text)
		next.Error = ""

	case DigitsPasted:
		if s.Step != StepRecoveryCode {
			return s, ErrInvalidTransition
		}
		next.Code, next.Focus = s.Code.PasteFrom(e.Index, e.Text)
		next.Error = ""

	case DigitErased:
		if s.Step != StepRecoveryCode {
			return s, ErrInvalidTransition
		}
		next.Code, next.Focus = s.Code.Erase(e.Index)

	case RecoveryPasswordEdited:
		if s.Step != StepRecoveryReset {
			return s, ErrInvalidTransition
		}
		next.Password = e.Password
		next.ConfirmPassword = e.Confirm
		next.Error = ""

	case CodeSent:
		if e.Email == "" {
			return s, ErrInvalidTransition
		}
		switch s.Step {
		case StepRecoveryEmail:
			next.Step = StepRecoveryCode
			next.Code = CodeSlots{}
			next.Focus = 0
		case StepRecoveryCode:
		default:
			return s, ErrInvalidTransition
		}
		next.Email = e.Email
		next.Error = ""
		next.Status = e.Status

	case CodeAccepted:
		if s.Step != StepRecoveryCode || !e.Code.Complete() {
			return s, ErrInvalidTransition
		}
		next.Code = e.Code
		next.Step = StepRecoveryReset
		next.Error = ""
		next.Status = ""

	case PasswordReplaced:
		if s.Step != StepRecoveryReset {
			return s, ErrInvalidTransition
		}
		next.Completed = true
		next.Password = ""
		next.ConfirmPassword = ""
		next.Error = ""
		next.Status = e.Status

	case RecoveryFailed:
		next.Error = e.Message
		next.Status = ""

	case RecoveryBack:
		if s.Step == StepRecoveryEmail {
			next.Exited = true
		} else {
			next.Step = s.Step - 1
		}
		next.Error = ""
		next.Status = ""
		next.Generation = s.Generation + 1

	default:
		return s, ErrInvalidTransition
	}

	return next, nil
}
