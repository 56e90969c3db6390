package goPortal

import (
	"context"

	"github.com/MrEthical07/goPortal/internal/flows"
)

// User is the identity carried by an authenticated session.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"-"`
}

// Session is the read-only authentication state consulted on every
// navigation. It is produced by [Portal.SessionFromToken] and [Portal.Login];
// the guard and the flows never mutate it.
type Session struct {
	Authenticated bool
	User          *User
}

// Anonymous is the unauthenticated session.
var Anonymous = Session{}

// Role returns the session role, or RoleUnknown when the session carries no
// user.
func (s Session) Role() Role {
	if s.User == nil {
		return RoleUnknown
	}
	return s.User.Role
}

// Company is a tenant a user may request access to. Status is empty for
// companies the user has no grant on, and holds the grant state ("approved",
// "pending") otherwise.
type Company = flows.Company

// IdentificationResult is the payload of a successful identification lookup.
//
// For existing users Companies lists the catalog annotated with the caller's
// grants; for new users it is the full catalog.
type IdentificationResult struct {
	UserExists  bool
	MaskedEmail string
	Companies   []Company
}

// AccessRequest asks the backend to grant Email access to Companies.
// Password is only sent for new users.
type AccessRequest struct {
	Identification string   `json:"identification"`
	Email          string   `json:"email"`
	Companies      []string `json:"companies"`
	IsNewUser      bool     `json:"isNewUser"`
	Password       string   `json:"password,omitempty"`
}

// Backend is the identity side of the session provider: the remote
// operations the flows and login depend on.
//
// Implementations report backend-side refusals as [*RejectedError]; any other
// error is treated as a transport failure.
//
//	Implementations: backend.Client (REST), internal/mocks.MockBackend
type Backend interface {
	VerifyIdentification(ctx context.Context, identification string) (IdentificationResult, error)
	VerifyExistingEmail(ctx context.Context, identification, email string) error
	RequestAccess(ctx context.Context, req AccessRequest) error
	VerifyEmailExists(ctx context.Context, email string) (bool, error)
	SendVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (bool, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Login(ctx context.Context, email, password string) (User, error)
}

// LoginResult is returned by [Portal.Login].
type LoginResult struct {
	Token    string
	Session  Session
	Redirect string
}
