package hasher

import (
	"errors"
	"fmt"

	"edu/xxhasher/internal/xxh3"
)

// SecretSize is the exact byte length of every secret accepted by the
// 3rd-generation family.
const SecretSize = xxh3.SecretSize

// DefaultSeed is used whenever a seed is not supplied.
const DefaultSeed = 0

var (
	// ErrInvalidSecretLength matches every *SecretLengthError.
	ErrInvalidSecretLength = errors.New("invalid secret length")
	ErrSecretNotSupported  = errors.New("secret is only supported by the xxh3 family")
	ErrSeedOutOfRange      = errors.New("seed out of range")
)

// SecretLengthError reports a secret whose length is not SecretSize.
type SecretLengthError struct {
	Got  int
	Want int
}

func (e *SecretLengthError) Error() string {
	return fmt.Sprintf("invalid secret length %d, expected %d bytes", e.Got, e.Want)
}

func (e *SecretLengthError) Unwrap() error { return ErrInvalidSecretLength }

// ValidateSecret is the single guard applied wherever a secret is accepted.
func ValidateSecret(secret []byte) error {
	if len(secret) != SecretSize {
		return &SecretLengthError{Got: len(secret), Want: SecretSize}
	}
	return nil
}

// DefaultSecret returns a copy of the canonical XXH3 secret. Hashing with it
// gives the same digests as hashing with seed 0.
func DefaultSecret() []byte {
	s := xxh3.DefaultSecret
	return s[:]
}

// Params carries the optional key material of a hash call.
//
// Seed defaults to zero. A non-nil Secret overrides Seed entirely for the
// xxh3 family and is rejected by the 32- and 64-bit families. The 32-bit
// family rejects seeds above math.MaxUint32.
type Params struct {
	Seed   uint64
	Secret []byte
}

// UsesSecret reports whether Secret takes precedence over Seed.
func (p Params) UsesSecret() bool { return p.Secret != nil }
