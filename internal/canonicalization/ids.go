package canonicalization

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FederationKey builds a deterministic lookup key for cross-row federation-ID
// deduplication within a single roster import: the same owner asserting the
// same federation ID twice (even across differently-cased or whitespace-padded
// spreadsheet cells) must collide on this key.
func FederationKey(ownerID, federationID string) string {
	return hashParts(strings.ToUpper(strings.TrimSpace(ownerID)), strings.ToUpper(strings.TrimSpace(federationID)))
}

// AthleteUniquenessKey builds a deterministic key identifying an athlete
// across re-imports by owner and native-script full name plus date of birth,
// used when a row carries no federation ID to disambiguate against.
func AthleteUniquenessKey(ownerID, familyName, givenName, dob string) string {
	return hashParts(ownerID, familyName, givenName, dob)
}

func hashParts(parts ...string) string {
	h := sha256.New()

	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}

		h.Write([]byte(p))
	}

	return hex.EncodeToString(h.Sum(nil))
}
