package crypto

import (
	"bytes"
	"testing"
)

// cheap keeps tests fast; production uses DefaultParams.
var cheap = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHasher_Hash_Deterministic(t *testing.T) {
	t.Parallel()
	h := NewHasher(cheap)

	pw := []byte("p@ssw0rd")
	salt := []byte("NaCl-16-bytes?")

	if !bytes.Equal(h.Hash(pw, salt), h.Hash(pw, salt)) {
		t.Fatalf("hash not deterministic for same input")
	}
	if bytes.Equal(h.Hash(pw, salt), h.Hash(pw, []byte("another-salt----"))) {
		t.Fatalf("hash should differ when salt differs")
	}
	if len(h.Hash(pw, salt)) != int(cheap.KeyLen) {
		t.Fatalf("unexpected key length")
	}
}

func TestHasher_NewVerify(t *testing.T) {
	t.Parallel()
	h := NewHasher(cheap)

	pw := []byte("correct horse battery staple")
	hash, salt, err := h.New(pw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(salt) != SaltLen {
		t.Fatalf("salt len=%d", len(salt))
	}
	if !h.Verify(pw, salt, hash) {
		t.Fatalf("expected true for correct password")
	}
	if h.Verify([]byte("wrong"), salt, hash) {
		t.Fatalf("expected false for wrong password")
	}
	if h.Verify(pw, []byte("wrong-salt"), hash) {
		t.Fatalf("expected false for wrong salt")
	}
	if _, _, err := h.New(nil); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestNewHasher_ZeroParams(t *testing.T) {
	t.Parallel()
	if NewHasher(Params{}).p != DefaultParams {
		t.Fatalf("zero params must select defaults")
	}
}
