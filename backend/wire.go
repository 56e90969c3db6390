package backend

import (
	"encoding/json"

	goPortal "github.com/MrEthical07/goPortal"
)

// Endpoint paths, relative to Config.BaseURL.
const (
	PathVerifyIdentification = "/auth/identification/verify"
	PathVerifyExistingEmail  = "/auth/email/verify-existing"
	PathAccessRequests       = "/auth/access-requests"
	PathEmailExists          = "/auth/email/exists"
	PathSendCode             = "/auth/codes/send"
	PathVerifyCode           = "/auth/codes/verify"
	PathResetPassword        = "/auth/password/reset"
	PathLogin                = "/auth/login"
)

// Envelope is the normalized response body of every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type IdentificationRequest struct {
	Identification string `json:"identification"`
}

type IdentificationData struct {
	UserExists  bool               `json:"userExists"`
	MaskedEmail string             `json:"maskedEmail,omitempty"`
	Companies   []goPortal.Company `json:"companies"`
}

type ExistingEmailRequest struct {
	Identification string `json:"identification"`
	Email          string `json:"email"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type EmailExistsData struct {
	Exists bool `json:"exists"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeData struct {
	Valid bool `json:"valid"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserData is the user payload of a successful login. Role is the backend
// role string ("ADMIN", "COORDINATOR", "CLIENT").
type UserData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
