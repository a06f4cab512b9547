package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the parameters used for new digests.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes and verifies passwords. New digests are Argon2id in
// PHC string format. Verification also accepts legacy bcrypt digests so
// accounts created before the migration keep working.
type Argon2Hasher struct {
	params Argon2Params
}

// Verify interface compliance
var _ PasswordAuthenticator = (*Argon2Hasher)(nil)

// NewArgon2Hasher creates a password hasher, with DefaultArgon2Params when
// none are given.
func NewArgon2Hasher(params ...Argon2Params) *Argon2Hasher {
	p := DefaultArgon2Params()
	if len(params) > 0 {
		p = params[0]
	}
	return &Argon2Hasher{params: p}
}

// HashPassword will generate a password hash
func (h *Argon2Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrWeakPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the stored digest. It returns ErrInvalidCredentials on mismatch so callers
// never leak which check failed.
func (h *Argon2Hasher) ComparePasswordAndHash(password, hash string) error {
	if strings.HasPrefix(hash, "$2") {
		return compareBcrypt(password, hash)
	}

	params, salt, key, err := decodeArgon2Hash(hash)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func decodeArgon2Hash(hash string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, errors.New("unsupported password digest", errors.CategoryInternal)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed digest version")
	}
	if version != argon2.Version {
		return params, nil, nil, errors.New("incompatible argon2 version", errors.CategoryInternal)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed digest parameters")
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed digest salt")
	}
	params.SaltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed digest key")
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}

var defaultHasher = NewArgon2Hasher()

// HashPassword will generate a password hash using default parameters.
func HashPassword(password string) (string, error) {
	return defaultHasher.HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the stored digest using default parameters.
func ComparePasswordAndHash(password, hash string) error {
	return defaultHasher.ComparePasswordAndHash(password, hash)
}
