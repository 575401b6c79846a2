package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Bcrypt(t *testing.T) {
	h, err := NewHasher(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, h.Verify(hash, "secret1"))
	assert.False(t, h.Verify(hash, "secret2"))
	assert.False(t, h.Verify(hash, ""))
}

func TestHasher_Argon2id(t *testing.T) {
	h, err := NewHasher(AlgorithmArgon2id, 0)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))

	assert.True(t, h.Verify(hash, "correct horse"))
	assert.False(t, h.Verify(hash, "battery staple"))
}

func TestHasher_VerifiesEitherFormat(t *testing.T) {
	bc, err := NewHasher(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	ar, err := NewHasher(AlgorithmArgon2id, 0)
	require.NoError(t, err)

	bcryptHash, err := bc.Hash("pw-one")
	require.NoError(t, err)
	argonHash, err := ar.Hash("pw-two")
	require.NoError(t, err)

	assert.True(t, ar.Verify(bcryptHash, "pw-one"))
	assert.True(t, bc.Verify(argonHash, "pw-two"))
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h, err := NewHasher(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedHashes(t *testing.T) {
	h, err := NewHasher(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=4$onlyfive",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
	} {
		assert.False(t, h.Verify(hash, "anything"), "hash %q", hash)
	}
}

func TestNewHasher_Errors(t *testing.T) {
	_, err := NewHasher("md5", 0)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = NewHasher(AlgorithmBcrypt, 99)
	assert.Error(t, err)

	h, err := NewHasher(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
