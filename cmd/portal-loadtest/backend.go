package main

import (
	"context"
	"errors"
	"strings"

	goPortal "github.com/MrEthical07/goPortal"
)

var errNoSession = errors.New("token resolved to no session")

// loadBackend accepts every login and spreads users over the three roles.
// Flow operations are not exercised by the load test.
type loadBackend struct{}

var roles = [...]goPortal.Role{goPortal.RoleClient, goPortal.RoleAdmin, goPortal.RoleCoordinator}

func (loadBackend) Login(_ context.Context, email, _ string) (goPortal.User, error) {
	id := strings.TrimSuffix(email, "@load.local")
	return goPortal.User{
		ID:    id,
		Name:  id,
		Email: email,
		Role:  roles[len(id)%len(roles)],
	}, nil
}

var errUnsupported = goPortal.Reject("not available in the load test")

func (loadBackend) VerifyIdentification(context.Context, string) (goPortal.IdentificationResult, error) {
	return goPortal.IdentificationResult{}, errUnsupported
}

func (loadBackend) VerifyExistingEmail(context.Context, string, string) error { return errUnsupported }

func (loadBackend) RequestAccess(context.Context, goPortal.AccessRequest) error { return errUnsupported }

func (loadBackend) VerifyEmailExists(context.Context, string) (bool, error) {
	return false, errUnsupported
}

func (loadBackend) SendVerificationCode(context.Context, string) error { return errUnsupported }

func (loadBackend) VerifyCode(context.Context, string, string) (bool, error) {
	return false, errUnsupported
}

func (loadBackend) ResetPassword(context.Context, string, string, string) error {
	return errUnsupported
}
