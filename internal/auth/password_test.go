// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPassword("s3cret-passphrase")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Errorf("unexpected hash prefix: %s", hash)
	}

	other, err := HashPassword("s3cret-passphrase")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == other {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestCheckPassword_Argon2(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"correct horse", true},
		{"correct horse ", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := CheckPassword(tt.password, hash)
		if err != nil {
			t.Fatalf("CheckPassword(%q): %v", tt.password, err)
		}
		if got != tt.want {
			t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestCheckPassword_Bcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	ok, err := CheckPassword("imported-pass", string(raw))
	if err != nil || !ok {
		t.Fatalf("bcrypt hash should verify, got ok=%v err=%v", ok, err)
	}
	ok, err = CheckPassword("nope", string(raw))
	if err != nil || ok {
		t.Fatalf("wrong password should not verify, got ok=%v err=%v", ok, err)
	}
	if !NeedsRehash(string(raw)) {
		t.Error("bcrypt hashes should be flagged for rehash")
	}
}

func TestCheckPassword_Malformed(t *testing.T) {
	for _, hash := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=19$bad$a$b"} {
		if _, err := CheckPassword("x", hash); err == nil {
			t.Errorf("CheckPassword with %q should fail", hash)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if NeedsRehash(current) {
		t.Error("fresh hash should not need rehash")
	}

	legacy := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"
	if !NeedsRehash(legacy) {
		t.Error("hash with old parameters should need rehash")
	}
	ok, err := CheckPassword("changeme", legacy)
	if err != nil || !ok {
		t.Errorf("legacy hash should still verify, got ok=%v err=%v", ok, err)
	}
}
