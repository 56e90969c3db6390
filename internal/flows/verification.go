package flows

import (
	"slices"
	"strings"
)

const (
	MinIdentificationDigits = 10
	MaxIdentificationDigits = 13
)

// Verification steps.
const (
	StepIdentify     = 1
	StepVerifyOrJoin = 2
	StepAddAccess    = 3
	StepConfirmed    = 4
)

// VerificationMode records which branch step 2 was populated for.
type VerificationMode uint8

const (
	ModeUnresolved VerificationMode = iota
	ModeExistingUser
	ModeNewUser
)

func (m VerificationMode) String() string {
	switch m {
	case ModeExistingUser:
		return "existing_user"
	case ModeNewUser:
		return "new_user"
	default:
		return "unresolved"
	}
}

// Company is a tenant offered during registration.
type Company struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Granted reports whether the user already holds a grant (approved or
// pending) on the company.
func (c Company) Granted() bool {
	return c.Status != ""
}

// VerificationState is the value object of the registration / access-request
// wizard. Step only moves forward through an explicit advance event and back
// through VerificationBack.
type VerificationState struct {
	Step               int              `json:"step"`
	Mode               VerificationMode `json:"mode"`
	Identification     string           `json:"identification"`
	Email              string           `json:"email"`
	UserExists         bool             `json:"userExists"`
	MaskedEmail        string           `json:"maskedEmail,omitempty"`
	AvailableCompanies []Company        `json:"availableCompanies"`
	SelectedCompanies  []string         `json:"selectedCompanies"`
	Password           string           `json:"-"`
	ConfirmPassword    string           `json:"-"`
	Error              string           `json:"error,omitempty"`
	Exited             bool             `json:"exited,omitempty"`
	Generation         uint64           `json:"-"`
}

// NewVerificationState returns the state of a freshly mounted wizard.
func NewVerificationState() VerificationState {
	return VerificationState{Step: StepIdentify}
}

// Clone returns a deep copy.
func (s VerificationState) Clone() VerificationState {
	s.AvailableCompanies = slices.Clone(s.AvailableCompanies)
	s.SelectedCompanies = slices.Clone(s.SelectedCompanies)
	return s
}

func (s VerificationState) company(id string) (Company, bool) {
	for _, c := range s.AvailableCompanies {
		if c.ID == id {
			return c, true
		}
	}
	return Company{}, false
}

// VerificationEvent is the closed set of inputs to ReduceVerification.
type VerificationEvent interface {
	verificationEvent()
}

type (
	// IdentificationEdited replaces the identifier input.
	IdentificationEdited struct{ Raw string }
	// IdentityResolved is the outcome of a successful lookup.
	IdentityResolved struct {
		Identification string
		UserExists     bool
		MaskedEmail    string
		Companies      []Company
	}
	// AccessEmailEdited replaces the email input.
	AccessEmailEdited struct{ Email string }
	// AccessPasswordEdited replaces both password inputs.
	AccessPasswordEdited struct{ Password, Confirm string }
	// CompanyToggled adds or removes a company from the selection.
	CompanyToggled struct{ ID string }
	// OwnershipConfirmed is the outcome of a successful check of Email.
	OwnershipConfirmed struct{ Email string }
	// AccessGranted is the outcome of a successful access request for Email
	// and Companies.
	AccessGranted struct {
		Email     string
		Companies []string
	}
	// VerificationFailed keeps the step and shows Message inline.
	VerificationFailed struct{ Message string }
	// VerificationBack returns to the identify step, or exits from it.
	VerificationBack struct{}
)

func (IdentificationEdited) verificationEvent() {}
func (IdentityResolved) verificationEvent()     {}
func (AccessEmailEdited) verificationEvent()    {}
func (AccessPasswordEdited) verificationEvent() {}
func (CompanyToggled) verificationEvent()       {}
func (OwnershipConfirmed) verificationEvent()   {}
func (AccessGranted) verificationEvent()        {}
func (VerificationFailed) verificationEvent()   {}
func (VerificationBack) verificationEvent()     {}

// ReduceVerification applies ev to s and returns the next state. It never
// modifies s; on error the returned state equals s.
func ReduceVerification(s VerificationState, ev VerificationEvent) (VerificationState, error) {
	if s.Step < StepIdentify || s.Step > StepConfirmed || s.Exited {
		return s, ErrInvalidTransition
	}
	next := s.Clone()

	switch e := ev.(type) {
	case IdentificationEdited:
		if s.Step != StepIdentify {
			return s, ErrInvalidTransition
		}
		next.Identification = SanitizeIdentification(e.Raw)
		next.Error = ""

	case IdentityResolved:
		if s.Step != StepIdentify {
			return s, ErrInvalidTransition
		}
		next.Identification = e.Identification
		next.UserExists = e.UserExists
		next.AvailableCompanies = slices.Clone(e.Companies)
		next.SelectedCompanies = nil
		next.Email = ""
		next.Password = ""
		next.ConfirmPassword = ""
		next.Error = ""
		if e.UserExists {
			next.Mode = ModeExistingUser
			next.MaskedEmail = e.MaskedEmail
		} else {
			next.Mode = ModeNewUser
			next.MaskedEmail = ""
		}
		next.Step = StepVerifyOrJoin

	case AccessEmailEdited:
		if s.Step != StepVerifyOrJoin {
			return s, ErrInvalidTransition
		}
		next.Email = strings.TrimSpace(e.Email)
		next.Error = ""

	case AccessPasswordEdited:
		if s.Step != StepVerifyOrJoin || s.Mode != ModeNewUser {
			return s, ErrInvalidTransition
		}
		next.Password = e.Password
		next.ConfirmPassword = e.Confirm
		next.Error = ""

	case CompanyToggled:
		if !s.selecting() {
			return s, ErrInvalidTransition
		}
		c, ok := s.company(e.ID)
		if !ok || (s.Mode == ModeExistingUser && c.Granted()) {
			return s, ErrCompanyUnavailable
		}
		if i := slices.Index(next.SelectedCompanies, e.ID); i >= 0 {
			next.SelectedCompanies = slices.Delete(next.SelectedCompanies, i, i+1)
		} else {
			next.SelectedCompanies = append(next.SelectedCompanies, e.ID)
		}
		next.Error = ""

	case OwnershipConfirmed:
		if s.Step != StepVerifyOrJoin || s.Mode != ModeExistingUser || e.Email == "" {
			return s, ErrInvalidTransition
		}
		next.Email = e.Email
		next.Error = ""
		next.Step = StepAddAccess

	case AccessGranted:
		if !s.selecting() {
			return s, ErrInvalidTransition
		}
		if len(e.Companies) == 0 {
			return s, ErrNoCompanySelected
		}
		next.Email = e.Email
		next.SelectedCompanies = slices.Clone(e.Companies)
		next.Password = ""
		next.ConfirmPassword = ""
		next.Error = ""
		next.Step = StepConfirmed

	case VerificationFailed:
		if s.Step == StepConfirmed {
			return s, ErrInvalidTransition
		}
		next.Error = e.Message

	case VerificationBack:
		switch s.Step {
		case StepIdentify:
			next.Exited = true
		case StepVerifyOrJoin, StepAddAccess:
			next = VerificationState{
				Step:           StepIdentify,
				Identification: s.Identification,
			}
		default:
			return s, ErrInvalidTransition
		}
		next.Error = ""
		next.Generation = s.Generation + 1

	default:
		return s, ErrInvalidTransition
	}

	return next, nil
}

// selecting reports whether the current step collects a company selection:
// step 2 for new users, step 3 for existing users.
func (s VerificationState) selecting() bool {
	return (s.Step == StepVerifyOrJoin && s.Mode == ModeNewUser) ||
		(s.Step == StepAddAccess && s.Mode == ModeExistingUser)
}

// SanitizeIdentification keeps only ASCII digits and caps the result at
// MaxIdentificationDigits.
func SanitizeIdentification(raw string) string {
	var b strings.Builder
	b.Grow(MaxIdentificationDigits)
	for i := 0; i < len(raw) && b.Len() < MaxIdentificationDigits; i++ {
		if isDigit(raw[i]) {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
