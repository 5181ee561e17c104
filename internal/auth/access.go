package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCode is returned when the submitted access code is wrong.
// Login handlers match on it to answer 401 without leaking which check
// failed.
var ErrInvalidCode = errors.New("auth: invalid access code")

// AccessGate verifies the single access code that protects the wishlist.
//
// The configured value can be either the plain code or a bcrypt hash of it
// (recognised by the "$2" prefix bcrypt puts on its output). Plain codes
// are compared in constant time; hashed codes go through bcrypt, which is
// constant-time internally. Either way an attacker learns nothing from
// response timing.
type AccessGate struct {
	plain string
	hash  string
}

// NewAccessGate creates a gate from the configured ACCESS_CODE value.
func NewAccessGate(configured string) (*AccessGate, error) {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return nil, errors.New("auth: access code is not configured")
	}

	if strings.HasPrefix(configured, "$2") {
		return &AccessGate{hash: configured}, nil
	}
	return &AccessGate{plain: configured}, nil
}

// Verify checks a submitted code. Returns nil on a match, ErrInvalidCode on
// a mismatch.
func (g *AccessGate) Verify(code string) error {
	if g.hash != "" {
		err := bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(code))
		if err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrInvalidCode
			}
			return fmt.Errorf("auth: comparing access code hash: %w", err)
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(g.plain), []byte(code)) != 1 {
		return ErrInvalidCode
	}
	return nil
}

// HashAccessCode bcrypt-hashes a plaintext code for use as the configured
// value. Meant for a one-off setup step:
//
//	hash, _ := auth.HashAccessCode("my-code")
//	// put hash in ACCESS_CODE instead of the plaintext
func HashAccessCode(code string) (string, error) {
	if len(code) > 72 {
		// bcrypt silently truncates inputs longer than 72 bytes.
		return "", fmt.Errorf("auth: access code must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing access code: %w", err)
	}

	return string(hashed), nil
}
