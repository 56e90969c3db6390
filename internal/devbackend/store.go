package devbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/internal"
	"github.com/MrEthical07/goPortal/internal/flows"
	"github.com/MrEthical07/goPortal/password"
)

// Grant states.
const (
	GrantPending  = "pending"
	GrantApproved = "approved"
)

const codeDigits = 6

// Messages returned in rejected envelopes.
const (
	msgIdentificationInvalid = "The identification number is not valid."
	msgEmailMismatch         = "The email does not match our records."
	msgAlreadyRegistered     = "This identification is already registered."
	msgNotRegistered         = "This identification is not registered."
	msgUnknownCompany        = "One of the selected companies does not exist."
	msgAlreadyGranted        = "You already have access to one of the selected companies."
	msgNoCompanies           = "Select at least one company."
	msgEmailTaken            = "This email is already in use."
	msgEmailUnknown          = "No account is registered with this email."
	msgTooManyAttempts       = "Too many wrong codes. Request a new one."
	msgCodeInvalid           = "The code is invalid or has expired."
	msgPasswordInvalid       = "The new password is not valid."
	msgInvalidCredentials    = "Invalid email or password."
)

// Options tunes a Store. Zero values take the defaults noted per field.
type Options struct {
	// Hasher hashes seeded and new passwords. Default password.DefaultConfig().
	Hasher *password.Argon2
	// CodeTTL is the lifetime of a recovery code. Default 10m.
	CodeTTL time.Duration
	// MaxCodeAttempts is the number of wrong guesses a code tolerates. Default 5.
	MaxCodeAttempts int
	Logger          *slog.Logger
	Now             func() time.Time
}

// SeedUser is a user present at startup.
type SeedUser struct {
	Identification string
	Name           string
	Email          string
	Role           string
	Password       string
	Companies      map[string]string
}

// AccessRequestRecord is one accepted access request.
type AccessRequestRecord struct {
	ID             string
	Identification string
	Email          string
	Companies      []string
	IsNewUser      bool
	CreatedAt      time.Time
}

type user struct {
	id             string
	identification string
	name           string
	email          string
	role           string
	hash           string
	grants         map[string]string
}

type issuedCode struct {
	digest   internal.CodeDigest
	expires  time.Time
	attempts int
}

// Store is the backend state. It is safe for concurrent use, and can stand
// in for the REST client directly.
type Store struct {
	opts Options

	mu        sync.Mutex
	byEmail   map[string]*user
	byIdent   map[string]*user
	catalog   []goPortal.Company
	codes     map[string]*issuedCode
	requests  []AccessRequestRecord
	lastCodes map[string]string
}

var _ goPortal.Backend = (*Store)(nil)

// NewStore returns an empty store offering catalog.
func NewStore(catalog []goPortal.Company, opts Options) (*Store, error) {
	if opts.Hasher == nil {
		h, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Hasher = h
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cat := make([]goPortal.Company, len(catalog))
	for i, c := range catalog {
		c.Status = ""
		cat[i] = c
	}

	return &Store{
		opts:      opts,
		byEmail:   make(map[string]*user),
		byIdent:   make(map[string]*user),
		catalog:   cat,
		codes:     make(map[string]*issuedCode),
		lastCodes: make(map[string]string),
	}, nil
}

// Seed adds users. It fails on duplicate identifications or emails.
func (s *Store) Seed(users ...SeedUser) error {
	for _, su := range users {
		hash, err := s.opts.Hasher.Hash(su.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", su.Email, err)
		}

		s.mu.Lock()
		err = s.addUserLocked(&user{
			id:             uuid.NewString(),
			identification: su.Identification,
			name:           su.Name,
			email:          su.Email,
			role:           strings.ToUpper(su.Role),
			hash:           hash,
			grants:         cloneGrants(su.Companies),
		})
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) addUserLocked(u *user) error {
	if _, dup := s.byIdent[u.identification]; dup {
		return fmt.Errorf("duplicate identification %s", flows.MaskIdentification(u.identification))
	}
	key := emailKey(u.email)
	if _, dup := s.byEmail[key]; dup {
		return fmt.Errorf("duplicate email %s", flows.MaskEmail(u.email))
	}
	s.byIdent[u.identification] = u
	s.byEmail[key] = u
	return nil
}

// VerifyIdentification reports whether id belongs to a user. Existing users
// get their masked email and the catalog annotated with their grants.
func (s *Store) VerifyIdentification(_ context.Context, id string) (goPortal.IdentificationResult, error) {
	if len(id) < flows.MinIdentificationDigits || len(id) > flows.MaxIdentificationDigits || !digitsOnly(id) {
		return goPortal.IdentificationResult{}, goPortal.Reject(msgIdentificationInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byIdent[id]
	if !ok {
		return goPortal.IdentificationResult{UserExists: false, Companies: slices.Clone(s.catalog)}, nil
	}

	companies := make([]goPortal.Company, len(s.catalog))
	for i, c := range s.catalog {
		c.Status = u.grants[c.ID]
		companies[i] = c
	}
	return goPortal.IdentificationResult{
		UserExists:  true,
		MaskedEmail: flows.MaskEmail(u.email),
		Companies:   companies,
	}, nil
}

func (s *Store) VerifyExistingEmail(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byIdent[id]
	if !ok {
		return goPortal.Reject(msgNotRegistered)
	}
	if !strings.EqualFold(strings.TrimSpace(email), u.email) {
		return goPortal.Reject(msgEmailMismatch)
	}
	return nil
}

// RequestAccess records an access request. New users are created as clients
// with pending grants; existing users get pending grants added.
func (s *Store) RequestAccess(_ context.Context, req goPortal.AccessRequest) error {
	if len(req.Companies) == 0 {
		return goPortal.Reject(msgNoCompanies)
	}

	var hash string
	if req.IsNewUser {
		if !password.Evaluate(req.Password).Satisfied() {
			return goPortal.Reject(msgPasswordInvalid)
		}
		h, err := s.opts.Hasher.Hash(req.Password)
		if err != nil {
			return goPortal.Reject(msgPasswordInvalid)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range req.Companies {
		if !s.inCatalogLocked(id) {
			return goPortal.Reject(msgUnknownCompany)
		}
	}

	u, exists := s.byIdent[req.Identification]
	switch {
	case req.IsNewUser && exists:
		return goPortal.Reject(msgAlreadyRegistered)
	case !req.IsNewUser && !exists:
		return goPortal.Reject(msgNotRegistered)
	case !req.IsNewUser && !strings.EqualFold(strings.TrimSpace(req.Email), u.email):
		return goPortal.Reject(msgEmailMismatch)
	}

	if req.IsNewUser {
		if _, taken := s.byEmail[emailKey(req.Email)]; taken {
			return goPortal.Reject(msgEmailTaken)
		}
		u = &user{
			id:             uuid.NewString(),
			identification: req.Identification,
			email:          strings.TrimSpace(req.Email),
			role:           "CLIENT",
			hash:           hash,
			grants:         make(map[string]string, len(req.Companies)),
		}
		if err := s.addUserLocked(u); err != nil {
			return err
		}
	} else {
		for _, id := range req.Companies {
			if u.grants[id] != "" {
				return goPortal.Reject(msgAlreadyGranted)
			}
		}
	}

	for _, id := range req.Companies {
		u.grants[id] = GrantPending
	}
	rec := AccessRequestRecord{
		ID:             uuid.NewString(),
		Identification: req.Identification,
		Email:          u.email,
		Companies:      slices.Clone(req.Companies),
		IsNewUser:      req.IsNewUser,
		CreatedAt:      s.opts.Now(),
	}
	s.requests = append(s.requests, rec)

	s.opts.Logger.Info("access request recorded",
		"request_id", rec.ID,
		"identification", flows.MaskIdentification(rec.Identification),
		"companies", strings.Join(rec.Companies, ","),
		"new_user", rec.IsNewUser,
	)
	return nil
}

// AccessRequests returns the recorded requests in arrival order.
func (s *Store) AccessRequests() []AccessRequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Approve moves a pending grant to approved.
func (s *Store) Approve(identification, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byIdent[identification]
	if !ok || u.grants[companyID] != GrantPending {
		return errors.New("no pending grant")
	}
	u.grants[companyID] = GrantApproved
	return nil
}

func (s *Store) VerifyEmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[emailKey(email)]
	return ok, nil
}

// SendVerificationCode issues a fresh code for email, replacing any previous one.
func (s *Store) SendVerificationCode(_ context.Context, email string) error {
	key := emailKey(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; !ok {
		return goPortal.Reject(msgEmailUnknown)
	}
	code, err := internal.NewCode(codeDigits)
	if err != nil {
		return err
	}
	s.codes[key] = &issuedCode{
		digest:  internal.DigestCode(key, code),
		expires: s.opts.Now().Add(s.opts.CodeTTL),
	}
	s.lastCodes[key] = code

	s.opts.Logger.Info("verification code issued", "email", flows.MaskEmail(email), "code", code)
	return nil
}

// VerifyCode reports whether code is the live code for email. Wrong guesses
// count against the code; once the budget is spent every guess is rejected.
func (s *Store) VerifyCode(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkCodeLocked(emailKey(email), code)
}

// ResetPassword replaces the password when code is still live, and consumes
// the code.
func (s *Store) ResetPassword(_ context.Context, email, code, newPassword string) error {
	hash, err := s.opts.Hasher.Hash(newPassword)
	if err != nil {
		return goPortal.Reject(msgPasswordInvalid)
	}

	key := emailKey(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.checkCodeLocked(key, code)
	if err != nil {
		return err
	}
	if !ok {
		return goPortal.Reject(msgCodeInvalid)
	}
	u, found := s.byEmail[key]
	if !found {
		return goPortal.Reject(msgEmailUnknown)
	}
	u.hash = hash
	delete(s.codes, key)
	delete(s.lastCodes, key)

	s.opts.Logger.Info("password replaced", "email", flows.MaskEmail(email))
	return nil
}

func (s *Store) checkCodeLocked(key, code string) (bool, error) {
	c, ok := s.codes[key]
	if !ok || !s.opts.Now().Before(c.expires) {
		return false, nil
	}
	if c.attempts >= s.opts.MaxCodeAttempts {
		return false, goPortal.Reject(msgTooManyAttempts)
	}
	if !c.digest.Matches(key, code) {
		c.attempts++
		return false, nil
	}
	return true, nil
}

// LastCode returns the most recent live code sent to email. Tests and the
// local console use it in place of a mailbox.
func (s *Store) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.lastCodes[emailKey(email)]
	return code, ok
}

// Login checks the credentials.
func (s *Store) Login(_ context.Context, email, pw string) (goPortal.User, error) {
	s.mu.Lock()
	u, ok := s.byEmail[emailKey(email)]
	var hash string
	var out goPortal.User
	if ok {
		hash = u.hash
		role, _ := goPortal.ParseRole(u.role)
		out = goPortal.User{ID: u.id, Name: u.name, Email: u.email, Role: role}
	}
	s.mu.Unlock()

	if !ok {
		return goPortal.User{}, goPortal.Reject(msgInvalidCredentials)
	}
	match, err := s.opts.Hasher.Verify(pw, hash)
	if err != nil || !match {
		return goPortal.User{}, goPortal.Reject(msgInvalidCredentials)
	}
	s.upgradeHash(out.Email, hash, pw)
	return out, nil
}

// upgradeHash rehashes pw under the current parameters when the stored hash
// is weaker. A concurrent password change wins.
func (s *Store) upgradeHash(email, old, pw string) {
	if up, err := s.opts.Hasher.NeedsUpgrade(old); err != nil || !up {
		return
	}
	fresh, err := s.opts.Hasher.Hash(pw)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byEmail[emailKey(email)]; ok && u.hash == old {
		u.hash = fresh
		s.opts.Logger.Info("password hash upgraded", "email", flows.MaskEmail(email))
	}
}

func (s *Store) inCatalogLocked(id string) bool {
	for _, c := range s.catalog {
		if c.ID == id {
			return true
		}
	}
	return false
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func cloneGrants(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
