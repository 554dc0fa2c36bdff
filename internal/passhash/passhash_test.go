package passhash

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, algorithm string, bits int, pepper string) *Hasher {
	t.Helper()
	h, err := NewHasher(Options{Algorithm: algorithm, DigestBits: bits, Pepper: pepper, Cost: bcrypt.MinCost})
	require.NoError(t, err)
	return h
}

func TestHasher_RoundTrip(t *testing.T) {
	for _, alg := range []string{SHA2, SHA3} {
		for _, bits := range []int{224, 256, 384, 512} {
			t.Run(fmt.Sprintf("%s-%d", alg, bits), func(t *testing.T) {
				h := newTestHasher(t, alg, bits, "pepper")

				stored, err := h.Hash("1234")
				require.NoError(t, err)
				assert.NotContains(t, stored, "1234")
				assert.True(t, strings.HasPrefix(stored, "$2a$"))

				assert.True(t, h.Verify(stored, "1234"))
				assert.False(t, h.Verify(stored, "12345"))
				assert.False(t, h.Verify(stored, ""))
			})
		}
	}
}

func TestHasher_SaltedOutput(t *testing.T) {
	h := newTestHasher(t, SHA2, 256, "pepper")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify(a, "same"))
	assert.True(t, h.Verify(b, "same"))
}

func TestHasher_PepperBindsHashes(t *testing.T) {
	a := newTestHasher(t, SHA2, 256, "pepper-a")
	b := newTestHasher(t, SHA2, 256, "pepper-b")

	stored, err := a.Hash("secret")
	require.NoError(t, err)
	assert.False(t, b.Verify(stored, "secret"))
}

func TestHasher_LongPasswords(t *testing.T) {
	h := newTestHasher(t, SHA2, 512, "pepper")
	long := strings.Repeat("a", 200)

	stored, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Verify(stored, long))
	assert.False(t, h.Verify(stored, long[:199]))
}

func TestHasher_MalformedStoredValue(t *testing.T) {
	h := newTestHasher(t, SHA2, 256, "pepper")
	assert.False(t, h.Verify("not-a-hash", "1234"))
	assert.False(t, h.Verify("", "1234"))
}

func TestHasher_VerifyMissing(t *testing.T) {
	h := newTestHasher(t, SHA2, 256, "pepper")
	assert.False(t, h.VerifyMissing("dummy-password"))
}

func TestNewHasher_Errors(t *testing.T) {
	_, err := NewHasher(Options{Algorithm: "MD5", DigestBits: 128})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewHasher(Options{Algorithm: SHA2, DigestBits: 100})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewHasher(Options{Algorithm: SHA2, DigestBits: 256, Cost: 40})
	assert.Error(t, err)
}
