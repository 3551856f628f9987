package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Roedor78")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", hash)
	}
	ok, err := VerifyPassword("Roedor78", hash)
	if err != nil || !ok {
		t.Errorf("expected password to verify, ok=%v err=%v", ok, err)
	}
	ok, _ = VerifyPassword("wrong", hash)
	if ok {
		t.Errorf("wrong password verified")
	}
	if _, err := VerifyPassword("x", "hash_abc"); err == nil {
		t.Errorf("expected invalid hash format error")
	}
}

func TestLegacyHashMatchesOlderClients(t *testing.T) {
	cases := map[string]string{
		"Roedor78": "hash_7bc4b653",
		"secret":   "hash_32b35e9d",
		"ñandú":    "hash_113e0961",
	}
	for pw, want := range cases {
		if got := LegacyHash(pw); got != want {
			t.Errorf("LegacyHash(%q): GOT[%s], EXPECTED[%s]", pw, got, want)
		}
	}
}

func TestCheckPasswordFormats(t *testing.T) {
	modern, _ := HashPassword("secret")

	cases := []struct {
		name        string
		hash, plain string
		password    string
		ok, upgrade bool
	}{
		{"argon2 match", modern, "", "secret", true, false},
		{"argon2 mismatch", modern, "", "nope", false, false},
		{"legacy hash match", "hash_32b35e9d", "", "secret", true, true},
		{"legacy hash mismatch", "hash_32b35e9d", "", "nope", false, true},
		{"plaintext only", "", "secret", "secret", true, true},
		{"nothing stored", "", "", "secret", false, false},
	}
	for _, tc := range cases {
		ok, upgrade := CheckPassword(tc.password, tc.hash, tc.plain)
		if ok != tc.ok || upgrade != tc.upgrade {
			t.Errorf("%s: GOT[ok=%v upgrade=%v], EXPECTED[ok=%v upgrade=%v]", tc.name, ok, upgrade, tc.ok, tc.upgrade)
		}
	}
}

func TestCipherSealOpen(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	c, err := NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := c.Seal([]byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealed, []byte(`{"a":1}`)) {
		t.Errorf("plaintext visible in sealed output")
	}
	opened, err := c.Open(sealed)
	if err != nil || string(opened) != `{"a":1}` {
		t.Errorf("round trip failed: %s %v", opened, err)
	}
	if _, err := c.Open([]byte("short")); err == nil {
		t.Errorf("expected error for short ciphertext")
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "not base64!!", base64.StdEncoding.EncodeToString([]byte("too short"))} {
		if _, err := NewCipher(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"ana", "Jade", "user_01"}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Errorf("%q should be valid: %v", u, err)
		}
	}
	invalid := []string{"ab", "_ana", "has space", strings.Repeat("x", 21)}
	for _, u := range invalid {
		err := ValidateUsername(u)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "username" {
			t.Errorf("%q should fail with a username ValidationError, got %v", u, err)
		}
	}
}

func TestValidateGroupName(t *testing.T) {
	name, err := ValidateGroupName("  devs  ")
	if err != nil || name != "devs" {
		t.Errorf("GOT[%q %v]", name, err)
	}
	if _, err := ValidateGroupName("   "); err == nil {
		t.Errorf("blank group name accepted")
	}
}
