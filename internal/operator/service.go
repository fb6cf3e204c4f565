package operator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const keyRandomBytes = 32

const keyPrefix = "meet_op_"

// Service issues and authenticates operator keys and authorizes privileged
// operations against them.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service. now defaults to time.Now when nil.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, now: now}
}

// Issue mints a new operator key with the given name and permission set,
// returning the plaintext key exactly once. The plaintext is never stored.
func (s *Service) Issue(ctx context.Context, name string, perms []Permission, expiresAt *time.Time) (plaintext string, key *Key, err error) {
	if name == "" {
		return "", nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if len(perms) == 0 {
		return "", nil, fmt.Errorf("%w: at least one permission is required", ErrValidation)
	}

	plaintext, err = generateKey()
	if err != nil {
		return "", nil, err
	}

	hash, err := hashKey(plaintext)
	if err != nil {
		return "", nil, err
	}

	key = &Key{
		ID:          uuid.NewString(),
		Hash:        hash,
		LookupHash:  lookupHash(plaintext),
		Name:        name,
		Permissions: perms,
		CreatedAt:   s.now(),
		ExpiresAt:   expiresAt,
		Active:      true,
	}

	if err := s.store.Add(ctx, key); err != nil {
		return "", nil, err
	}

	return plaintext, key, nil
}

// Authenticate resolves a presented plaintext key to its Key record,
// verifying it is active, unexpired, and matches the stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, plaintext string) (*Key, error) {
	key, err := s.store.FindByLookupHash(ctx, lookupHash(plaintext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyNotFound, err)
	}

	if !key.Active || key.expired(s.now()) {
		return nil, ErrKeyInactive
	}

	if !compareKeyHash(key.Hash, plaintext) {
		return nil, ErrKeyNotFound
	}

	return key, nil
}

// Authorize reports whether a presented key grants perm, resolving and
// verifying it first.
func (s *Service) Authorize(ctx context.Context, plaintext string, perm Permission) (*Key, error) {
	key, err := s.Authenticate(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	if !key.HasPermission(perm) {
		return nil, ErrForbidden
	}

	return key, nil
}

// Revoke deactivates a key by ID.
func (s *Service) Revoke(ctx context.Context, keyID string) error {
	return s.store.Delete(ctx, keyID)
}

func generateKey() (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.New("generate operator key: entropy source failed")
	}

	return keyPrefix + hex.EncodeToString(buf), nil
}
