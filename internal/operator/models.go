// Package operator implements operator API-key authentication: bcrypt-
// hashed keys gating the privileged batch operations (force-approve,
// generate-meet, assign-bibs, import-roster).
package operator

import (
	"errors"
	"time"
)

// Permission is one privileged operation an OperatorKey may be granted.
type Permission string

const (
	PermissionForceApprove Permission = "force-approve"
	PermissionGenerateMeet Permission = "generate-meet"
	PermissionAssignBibs   Permission = "assign-bibs"
	PermissionImportRoster Permission = "import-roster"
)

// Key is an operator API key: the plaintext is never stored, only its
// bcrypt hash (security boundary) and a SHA-256 lookup hash (O(1) query by
// presented key).
type Key struct {
	ID          string
	Hash        string // bcrypt hash, never exposed outside this package
	LookupHash  string // SHA-256 hash for O(1) lookup, not a security boundary
	Name        string
	Permissions []Permission
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Active      bool
}

// HasPermission reports whether this key carries perm.
func (k *Key) HasPermission(perm Permission) bool {
	for _, p := range k.Permissions {
		if p == perm {
			return true
		}
	}

	return false
}

// expired reports whether the key's expiry has passed as of now.
func (k *Key) expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

var (
	ErrKeyNotFound = errors.New("operator key not found")
	ErrKeyInactive = errors.New("operator key is inactive or expired")
	ErrForbidden   = errors.New("operator key lacks required permission")
	ErrValidation  = errors.New("operator key validation error")
)
