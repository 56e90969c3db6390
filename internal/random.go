package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const sessionIDBytes = 16

var sessionIDLen = base64.RawURLEncoding.EncodedLen(sessionIDBytes)

// NewSessionID returns 128 random bits as unpadded base64url.
func NewSessionID() (string, error) {
	var raw [sessionIDBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidSessionID reports whether s has the shape NewSessionID produces.
func ValidSessionID(s string) bool {
	if len(s) != sessionIDLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// NewCode returns a uniformly random numeric code of digits length, leading
// zeros included.
func NewCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("code length out of range")
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// CodeDigest binds a code to its subject so the plaintext never has to be
// kept. Subjects compare case-insensitively.
type CodeDigest [sha256.Size]byte

func DigestCode(subject, code string) CodeDigest {
	return sha256.Sum256([]byte(strings.ToLower(subject) + "\x00" + code))
}

// Matches compares in constant time.
func (d CodeDigest) Matches(subject, code string) bool {
	other := DigestCode(subject, code)
	return subtle.ConstantTimeCompare(d[:], other[:]) == 1
}
