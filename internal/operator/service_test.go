package operator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	byLookup map[string]*Key
}

func newFakeStore() *fakeStore { return &fakeStore{byLookup: map[string]*Key{}} }

func (f *fakeStore) FindByLookupHash(_ context.Context, h string) (*Key, error) {
	k, ok := f.byLookup[h]
	if !ok {
		return nil, errors.New("not found")
	}

	return k, nil
}

func (f *fakeStore) Add(_ context.Context, key *Key) error {
	f.byLookup[key.LookupHash] = key

	return nil
}

func (f *fakeStore) Update(context.Context, *Key) error { return nil }

func (f *fakeStore) Delete(_ context.Context, id string) error {
	for h, k := range f.byLookup {
		if k.ID == id {
			k.Active = false
			f.byLookup[h] = k
		}
	}

	return nil
}

func (f *fakeStore) List(context.Context) ([]*Key, error) { return nil, nil }

func issue(t *testing.T, svc *Service, perms ...Permission) string {
	t.Helper()

	plaintext, _, err := svc.Issue(context.Background(), "test key", perms, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return plaintext
}

func TestIssueAndAuthenticate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, func() time.Time { return time.Unix(0, 0) })

	plaintext := issue(t, svc, PermissionForceApprove)

	key, err := svc.Authenticate(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !key.HasPermission(PermissionForceApprove) {
		t.Fatalf("expected issued key to carry force-approve permission")
	}
}

func TestAuthenticate_WrongKey(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	issue(t, svc, PermissionGenerateMeet)

	if _, err := svc.Authenticate(context.Background(), "meet_op_wrong"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestAuthorize_Forbidden(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	plaintext := issue(t, svc, PermissionAssignBibs)

	if _, err := svc.Authorize(context.Background(), plaintext, PermissionForceApprove); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthenticate_Revoked(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	plaintext := issue(t, svc, PermissionImportRoster)

	var id string
	for _, k := range store.byLookup {
		id = k.ID
	}

	if err := svc.Revoke(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), plaintext); !errors.Is(err, ErrKeyInactive) {
		t.Fatalf("expected ErrKeyInactive, got %v", err)
	}
}

func TestIssue_RequiresPermission(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	if _, _, err := svc.Issue(context.Background(), "no perms", nil, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
