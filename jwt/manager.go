package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

var (
	// ErrNoSessionID is returned for tokens that reference no session.
	ErrNoSessionID = errors.New("token carries no session id")
	// ErrUnknownKey is returned when the kid header names no configured key.
	ErrUnknownKey = errors.New("token signed with an unknown key")
	// ErrIssuedInFuture is returned when iat lies beyond the allowed skew.
	ErrIssuedInFuture = errors.New("token issued in the future")
)

// Config configures session token issuance and verification.
//
// HS256 signs and verifies with PrivateKey. Ed25519 signs with PrivateKey
// and verifies with PublicKey; a verify-only manager needs no PrivateKey.
// VerifyKeys, when set, picks the verification key by the kid header so a
// signing key can be rotated without logging everyone out.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	// Now defaults to time.Now.
	Now func() time.Time
}

// SessionClaims name a server-side session. Subject is the user id. Role is
// a hint for logs and clients; the session record stays authoritative.
type SessionClaims struct {
	SID  string `json:"sid"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens. It is safe for concurrent use.
type Manager struct {
	ttl          time.Duration
	keyID        string
	maxFutureIAT time.Duration
	now          func() time.Time

	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	byKID     map[string]any
	parser    *jwt.Parser

	issuer   string
	audience string
}

// NewManager validates cfg, decodes its keys and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token leeway must be between 0 and 2m")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("MaxFutureIAT must be between 0 and 24h")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		ttl:          cfg.TTL,
		keyID:        strings.TrimSpace(cfg.KeyID),
		maxFutureIAT: cfg.MaxFutureIAT,
		now:          cfg.Now,
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
	}
	if err := m.loadKeys(cfg); err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

func (m *Manager) loadKeys(cfg Config) error {
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return errors.New("hs256 requires a private key")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
		if len(cfg.VerifyKeys) > 0 {
			m.byKID = make(map[string]any, len(cfg.VerifyKeys))
			for kid, key := range cfg.VerifyKeys {
				m.byKID[kid] = key
			}
		}

	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return err
			}
			m.verifyKey = pub
		}
		if len(cfg.VerifyKeys) > 0 {
			m.byKID = make(map[string]any, len(cfg.VerifyKeys))
			for kid, key := range cfg.VerifyKeys {
				pub, err := parseEdPublicKey(key)
				if err != nil {
					return fmt.Errorf("ed25519 verify key %q: %w", kid, err)
				}
				m.byKID[kid] = pub
			}
		}
		if m.verifyKey == nil && m.byKID == nil {
			return errors.New("ed25519 requires a public key or verify keys")
		}

	default:
		return fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	for kid := range m.byKID {
		if strings.TrimSpace(kid) == "" {
			return errors.New("verify keys contain an empty kid")
		}
	}
	if m.keyID != "" && m.byKID != nil {
		if _, ok := m.byKID[m.keyID]; !ok {
			return errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return nil
}

// Issue signs a token for session sid of user userID.
func (m *Manager) Issue(userID, sid, role string) (string, error) {
	if sid == "" {
		return "", ErrNoSessionID
	}
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	now := m.now()
	claims := SessionClaims{
		SID:  sid,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}
	return token.SignedString(m.signKey)
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Parse verifies token and returns its claims.
func (m *Manager) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, m.keyFor)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.SID == "" {
		return nil, ErrNoSessionID
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(m.maxFutureIAT)) {
		return nil, ErrIssuedInFuture
	}
	return claims, nil
}

func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)

	if m.byKID != nil {
		key, ok := m.byKID[kid]
		if !ok {
			return nil, ErrUnknownKey
		}
		return key, nil
	}
	if m.keyID != "" && kid != m.keyID {
		return nil, ErrUnknownKey
	}
	return m.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
