package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashersRoundTrip(t *testing.T) {
	hashers := map[string]Hasher{
		"argon2id": testHasher,
		"bcrypt":   BcryptHasher{Cost: 4},
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("correct horse")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if err := ComparePassword(hash, "correct horse"); err != nil {
				t.Fatalf("expected match, got %v", err)
			}
			if err := ComparePassword(hash, "wrong horse"); !errors.Is(err, ErrPasswordMismatch) {
				t.Fatalf("expected ErrPasswordMismatch, got %v", err)
			}
		})
	}
}

func TestArgon2HashIsSalted(t *testing.T) {
	a, err := testHasher.Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := testHasher.Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("equal passwords must produce different hashes")
	}
	if !strings.HasPrefix(a, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", a)
	}
}

func TestComparePasswordRejectsUnknownFormats(t *testing.T) {
	// Unsalted SHA-256 hex digest of "password".
	legacy := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"

	for _, encoded := range []string{
		legacy,
		"",
		"$argon2id$v=19$m=1024,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$garbage$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	} {
		if err := ComparePassword(encoded, "password"); !errors.Is(err, ErrUnsupportedHash) {
			t.Fatalf("ComparePassword(%q): expected ErrUnsupportedHash, got %v", encoded, err)
		}
	}
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("bcrypt", 4)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if _, ok := h.(BcryptHasher); !ok {
		t.Fatalf("expected BcryptHasher, got %T", h)
	}

	h, err = NewHasher("argon2id", 0)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if a, ok := h.(Argon2Hasher); !ok || a.Params != DefaultArgon2Params {
		t.Fatalf("expected default Argon2Hasher, got %#v", h)
	}

	if _, err := NewHasher("md5", 0); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
}

func TestComparePasswordRejectsZeroArgon2Params(t *testing.T) {
	hash, err := testHasher.Hash("password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	parts := strings.Split(hash, "$")

	for _, params := range []string{"m=1024,t=0,p=1", "m=1024,t=1,p=0", "m=0,t=1,p=1"} {
		tampered := append([]string(nil), parts...)
		tampered[3] = params
		encoded := strings.Join(tampered, "$")

		if err := ComparePassword(encoded, "password"); !errors.Is(err, ErrUnsupportedHash) {
			t.Fatalf("ComparePassword(%q): expected ErrUnsupportedHash, got %v", encoded, err)
		}
	}
}
