package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const secretTokenBytes = 32

// SecretGenerator mints single-use tokens for one purpose (email
// verification or password reset). Only the digest is persisted.
type SecretGenerator struct {
	ttl time.Duration
	now func() time.Time
}

func NewSecretGenerator(ttl time.Duration) *SecretGenerator {
	return &SecretGenerator{ttl: ttl, now: time.Now}
}

// Generate returns a 256-bit hex token, its digest and its expiry.
func (g *SecretGenerator) Generate() (token, digest string, expires time.Time, err error) {
	b := make([]byte, secretTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate secret token: %w", err)
	}

	token = hex.EncodeToString(b)
	return token, HashToken(token), g.now().Add(g.ttl), nil
}

// HashToken is the lookup key stored for a secret token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
