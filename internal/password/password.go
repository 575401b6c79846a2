// Package password hashes and verifies account secrets.
//
// Hashes are self-describing, so Verify accepts any supported format no matter
// which algorithm the Hasher is configured to produce.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	DefaultBcryptCost = 12
)

var (
	ErrEmptyPassword        = errors.New("password is required")
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
)

// Hasher produces and checks one-way password hashes.
type Hasher struct {
	algorithm  string
	bcryptCost int
}

// NewHasher returns a Hasher for the named algorithm. cost is only used by bcrypt.
func NewHasher(algorithm string, cost int) (*Hasher, error) {
	switch algorithm {
	case AlgorithmBcrypt:
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &Hasher{algorithm: algorithm, bcryptCost: cost}, nil
}

// Hash returns the encoded hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2id(plaintext)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches encodedHash. It never errors: a
// malformed or unknown hash simply does not match.
func (h *Hasher) Verify(encodedHash, plaintext string) bool {
	if encodedHash == "" || plaintext == "" {
		return false
	}

	if strings.HasPrefix(encodedHash, "$argon2id$") {
		return verifyArgon2id(encodedHash, plaintext)
	}

	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext)) == nil
}
