package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Floors for both configured and decoded parameters.
const (
	minMemoryKB    uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minHashInput          = 6
)

// DefaultMaxPasswordBytes bounds Hash and Verify input when Config leaves
// MaxPasswordBytes at zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrPasswordTooShort is returned by Hash for input under six bytes.
	ErrPasswordTooShort = errors.New("password must be at least 6 bytes")
	// ErrPasswordTooLong is returned when input exceeds the configured maximum.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash wraps every reason an encoded hash cannot be read.
	ErrMalformedHash = errors.New("malformed password hash")
	ErrInvalidConfig = errors.New("invalid argon2 config")
)

// Config holds Argon2id cost parameters. MaxPasswordBytes of zero means
// DefaultMaxPasswordBytes.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters the development backend hashes with.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory below %d KiB", ErrInvalidConfig, minMemoryKB)
	case c.Time < minTime:
		return fmt.Errorf("%w: time must be at least %d", ErrInvalidConfig, minTime)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be at least %d", ErrInvalidConfig, minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt shorter than %d bytes", ErrInvalidConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key shorter than %d bytes", ErrInvalidConfig, minKeyLength)
	case c.MaxPasswordBytes < 0:
		return fmt.Errorf("%w: negative max password bytes", ErrInvalidConfig)
	}
	return nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

var b64 = base64.RawStdEncoding

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func parsePHC(s string) (phc, error) {
	var h phc

	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, fmt.Errorf("%w: want 5 fields", ErrMalformedHash)
	}
	if fields[1] != "argon2id" {
		return h, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	var memory, time, threads uint64
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", memory, time, threads) != fields[3] {
		return h, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	if memory < uint64(minMemoryKB) || memory > 1<<32-1 || time < uint64(minTime) || time > 1<<32-1 ||
		threads < uint64(minParallelism) || threads > 255 {
		return h, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	h.memory, h.time, h.threads = uint32(memory), uint32(time), uint8(threads)

	if h.salt, err = decodeB64(fields[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return h, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.key, err = decodeB64(fields[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return b64.DecodeString(strings.TrimRight(s, "="))
}

// Argon2 hashes and verifies passwords in PHC string format. It is safe for
// concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh salted hash. Bytes are hashed as given, with no
// Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	switch {
	case len(password) < minHashInput:
		return "", ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	h := phc{
		memory:  a.config.Memory,
		time:    a.config.Time,
		threads: a.config.Parallelism,
		salt:    make([]byte, a.config.SaltLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", err
	}
	h.key = argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether password matches encoded. The comparison is
// constant time; the cost is that of the parameters stored in encoded.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters,
// or a different key length, than the current config.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory || h.time < a.config.Time || h.threads < a.config.Parallelism
	return weaker || uint32(len(h.key)) != a.config.KeyLength, nil
}
