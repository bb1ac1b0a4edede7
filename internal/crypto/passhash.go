// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltLen is the per-user salt size.
const SaltLen = 16

// Params are Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultParams are tuned for server-side hashing.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32}

// Hasher derives and checks password hashes with fixed parameters.
type Hasher struct {
	p     Params
	dummy []byte // salt for timing-equalising work on unknown accounts
}

// NewHasher returns a hasher; zero Params select DefaultParams.
func NewHasher(p Params) *Hasher {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.KeyLen == 0 {
		p = DefaultParams
	}
	dummy, _ := RandBytes(SaltLen)
	return &Hasher{p: p, dummy: dummy}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash returns the Argon2id hash of password under salt.
func (h *Hasher) Hash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.p.Time, h.p.Memory, h.p.Threads, h.p.KeyLen)
}

// New hashes password under a fresh salt.
func (h *Hasher) New(password []byte) (hash, salt []byte, err error) {
	if len(password) == 0 {
		return nil, nil, errors.New("empty password")
	}
	salt, err = RandBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return h.Hash(password, salt), salt, nil
}

// Verify reports whether password matches expected under salt, in constant time.
func (h *Hasher) Verify(password, salt, expected []byte) bool {
	got := h.Hash(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// Burn performs one hash and discards it, so unknown accounts cost as much as wrong passwords.
func (h *Hasher) Burn(password []byte) {
	_ = h.Hash(password, h.dummy)
}
