package core

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltBytes      = 16
	passwordHashIterations = 120000
	passwordHashLength     = 64
)

// HashPassword derives a PBKDF2-SHA512 hash of password and returns it in the
// self-describing "<iterations>:<saltHex>:<keyHex>" format. The hex-encoded
// salt string itself is the KDF salt input, so stored hashes stay compatible
// with credentials written by the original Node backend.
func HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	key := pbkdf2.Key([]byte(password), []byte(saltHex), passwordHashIterations, passwordHashLength, sha512.New)
	return fmt.Sprintf("%d:%s:%s", passwordHashIterations, saltHex, hex.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the stored hash. Malformed
// stored values count as a mismatch, never an error; the iteration count is
// taken from the stored value so old hashes survive cost-factor bumps.
func VerifyPassword(password, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return false
	}

	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false
	}
	saltHex, keyHex := parts[1], parts[2]
	if saltHex == "" || keyHex == "" {
		return false
	}

	expected, err := hex.DecodeString(keyHex)
	if err != nil {
		return false
	}

	derived := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, passwordHashLength, sha512.New)
	if len(derived) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}
