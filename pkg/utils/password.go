package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength  = 16
	keyLength   = 32
	timeCost    = 3
	memoryCost  = 64 * 1024
	parallelism = 2

	// MinPasswordLength applies to password changes
	MinPasswordLength = 6

	legacyHashPrefix = "hash_"
	legacyHashSalt   = "chat_app_demo_salt"
)

// HashPassword hashes a password using Argon2id
func HashPassword(password string) (string, error) {
	// Generate a random salt
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, parallelism, keyLength)

	saltBase64 := base64.RawStdEncoding.EncodeToString(salt)
	hashBase64 := base64.RawStdEncoding.EncodeToString(hash)

	// Return format: $argon2id$v=19$m=65536,t=3,p=2$salt$hash
	return "$argon2id$v=19$m=65536,t=3,p=2$" + saltBase64 + "$" + hashBase64, nil
}

// VerifyPassword verifies a password against an Argon2id hash
func VerifyPassword(password, hashedPassword string) (bool, error) {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("invalid hash format")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, parallelism, keyLength)

	return subtle.ConstantTimeCompare(computedHash, hash) == 1, nil
}

// IsLegacyHash reports whether stored was written by older clients
func IsLegacyHash(stored string) bool {
	return strings.HasPrefix(stored, legacyHashPrefix)
}

// LegacyHash reproduces the demo hash older clients stored: a 32-bit string hash
// over UTF-16 code units of password+salt, rendered as "hash_" + hex(|h|).
func LegacyHash(password string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(password + legacyHashSalt)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return legacyHashPrefix + strconv.FormatInt(abs, 16)
}

// CheckPassword verifies password against any stored credential format.
// It returns upgrade=true when the stored form should be replaced with a fresh Argon2id hash.
func CheckPassword(password, storedHash, legacyPlaintext string) (ok bool, upgrade bool) {
	switch {
	case storedHash != "" && IsLegacyHash(storedHash):
		return subtle.ConstantTimeCompare([]byte(LegacyHash(password)), []byte(storedHash)) == 1, true
	case storedHash != "":
		valid, err := VerifyPassword(password, storedHash)
		if err != nil {
			return false, false
		}
		return valid, false
	case legacyPlaintext != "":
		return subtle.ConstantTimeCompare([]byte(password), []byte(legacyPlaintext)) == 1, true
	default:
		return false, false
	}
}
