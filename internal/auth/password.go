// Password hashing for local (email + password) accounts.
//
// WHY BCRYPT?
// A password hash has to be slow to compute, otherwise a leaked users table
// can be brute-forced offline on a GPU. bcrypt is slow on purpose and tunable:
//   - a fresh random salt per hash, so equal passwords give different hashes
//   - the salt and cost live inside the output string (no extra column)
//   - the cost is an exponent, each +1 doubles the work
//
// Hash format stored in users.password_hash:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 = 4096 rounds)
//	 version
//
// GitHub-only accounts keep an empty password_hash; Login refuses them
// with "Please login with GitHub" before bcrypt is ever called.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for production hashes.
// Each +1 doubles the hashing time; 12 takes roughly 250ms on current hardware.
//
// COST TUNING:
// Aim for 200-300ms per hash on the production machine. Lower is cheap to
// crack; higher makes signup/login traffic spikes pin the CPU on bcrypt.
// BCRYPT_COST overrides it.
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs are rejected rather
// than silently truncated.
const maxPasswordBytes = 72

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and verifies local-account passwords.
//
// It is a struct rather than two free functions so the cost can be injected:
// tests run at cost 4, which keeps the logic identical and each hash under a
// millisecond.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService using the given bcrypt cost.
// cost <= 0 selects the default. Tests pass bcrypt.MinCost (4).
func NewPasswordService(cost int) *PasswordService {
	if cost <= 0 {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. The salt is embedded in the
// result, so hashing the same password twice gives different strings.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		// bcrypt would hash only the first 72 bytes, so two passwords that
		// share that prefix would both log in.
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks plaintext against a stored hash. A mismatch returns
// ErrInvalidPassword; a malformed hash returns a wrapped bcrypt error.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword compares in constant time, so response time
// does not reveal how much of a guess was right.
//
// Usage:
//
//	if err := ps.Verify(user.PasswordHash, in.Password); errors.Is(err, auth.ErrInvalidPassword) {
//	    // wrong password
//	}
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
