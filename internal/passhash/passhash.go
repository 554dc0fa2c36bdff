// Package passhash derives and verifies the per-post passwords that gate
// board edits and deletions.
//
// A password is first reduced to a keyed digest (HMAC with a server-side
// pepper over SHA-2 or SHA-3) and the raw digest is then hashed with bcrypt.
// The digest stage keeps every bcrypt input under its 72 byte limit and ties
// stored hashes to the deployment's pepper.
package passhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/sha3"
)

// Supported digest families.
const (
	SHA2 = "SHA2"
	SHA3 = "SHA3"
)

// ErrUnsupported is returned for an unknown algorithm or digest size.
var ErrUnsupported = errors.New("passhash: unsupported digest")

// Options configure a Hasher.
type Options struct {
	Algorithm  string
	DigestBits int
	Pepper     string
	Cost       int
}

// Hasher hashes and verifies board passwords. It is safe for concurrent use.
type Hasher struct {
	newHash func() hash.Hash
	pepper  []byte
	cost    int
	dummy   []byte
}

func digestFunc(algorithm string, bits int) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case SHA2:
		switch bits {
		case 224:
			return sha256.New224, nil
		case 256:
			return sha256.New, nil
		case 384:
			return sha512.New384, nil
		case 512:
			return sha512.New, nil
		}
	case SHA3:
		switch bits {
		case 224:
			return sha3.New224, nil
		case 256:
			return sha3.New256, nil
		case 384:
			return sha3.New384, nil
		case 512:
			return sha3.New512, nil
		}
	}
	return nil, fmt.Errorf("%w: %s-%d", ErrUnsupported, algorithm, bits)
}

// NewHasher validates opts and returns a Hasher.
func NewHasher(opts Options) (*Hasher, error) {
	fn, err := digestFunc(opts.Algorithm, opts.DigestBits)
	if err != nil {
		return nil, err
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("passhash: bcrypt cost %d out of range", cost)
	}

	h := &Hasher{newHash: fn, pepper: []byte(opts.Pepper), cost: cost}
	dummy, err := bcrypt.GenerateFromPassword(h.digest("dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("passhash: prepare dummy hash: %w", err)
	}
	h.dummy = dummy
	return h, nil
}

func (h *Hasher) digest(plaintext string) []byte {
	mac := hmac.New(h.newHash, h.pepper)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}

// Hash returns the storable hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(h.digest(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("passhash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches stored. Malformed stored values
// never match.
func (h *Hasher) Verify(stored, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), h.digest(plaintext)) == nil
}

// VerifyMissing spends one comparison against a fixed hash so a lookup for a
// missing post takes as long as a wrong password. It always returns false.
func (h *Hasher) VerifyMissing(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, h.digest(plaintext))
	return false
}
