package operator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptLimit is bcrypt's 72-byte input ceiling; longer keys are pre-hashed
// with SHA-256 before bcrypt sees them.
const bcryptLimit = 72

const bcryptCost = 10

// hashKey produces the bcrypt hash stored as the security boundary.
func hashKey(key string) (string, error) {
	input := []byte(key)
	if len(input) > bcryptLimit {
		sum := sha256.Sum256(input)
		input = []byte(hex.EncodeToString(sum[:]))
	}

	hash, err := bcrypt.GenerateFromPassword(input, bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash operator key: %w", err)
	}

	return string(hash), nil
}

// compareKeyHash reports whether key matches the bcrypt hash.
func compareKeyHash(hash, key string) bool {
	input := []byte(key)
	if len(input) > bcryptLimit {
		sum := sha256.Sum256(input)
		input = []byte(hex.EncodeToString(sum[:]))
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), input) == nil
}

// lookupHash computes the SHA-256 hash used for O(1) key lookup. Separate
// from the bcrypt hash above, which remains the sole security boundary.
func lookupHash(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}
