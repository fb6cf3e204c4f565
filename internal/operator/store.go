package operator

import "context"

// Store persists operator keys. Lookup is by the SHA-256 lookup hash of the
// presented key, never the plaintext or the bcrypt hash.
type Store interface {
	FindByLookupHash(ctx context.Context, lookupHash string) (*Key, error)
	Add(ctx context.Context, key *Key) error
	Update(ctx context.Context, key *Key) error
	Delete(ctx context.Context, keyID string) error
	List(ctx context.Context) ([]*Key, error)
}
