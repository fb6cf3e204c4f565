package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/trackmeet/engine/internal/catalog"
)

type fakeTx struct {
	byFederationID map[string]*catalog.Athlete
	created        []*catalog.Athlete
	updated        []*catalog.Athlete
	committed      bool
	rolledBack     bool
	failOnCreate   bool
}

func newFakeTx() *fakeTx {
	return &fakeTx{byFederationID: map[string]*catalog.Athlete{}}
}

func (tx *fakeTx) FindAthleteByFederationID(_ context.Context, ownerID, federationID string) (*catalog.Athlete, error) {
	a, ok := tx.byFederationID[ownerID+"|"+federationID]
	if !ok {
		return nil, errors.New("not found")
	}

	return a, nil
}

func (tx *fakeTx) CreateAthlete(_ context.Context, a *catalog.Athlete) error {
	if tx.failOnCreate {
		return errors.New("insert failed")
	}

	tx.created = append(tx.created, a)
	tx.byFederationID[ownerKey(a.Owner)+"|"+a.FederationID] = a

	return nil
}

func (tx *fakeTx) UpdateAthlete(_ context.Context, a *catalog.Athlete) error {
	tx.updated = append(tx.updated, a)

	return nil
}

func (tx *fakeTx) Commit() error {
	tx.committed = true

	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.rolledBack = true

	return nil
}

type fakeRosterStore struct {
	tx *fakeTx
}

func (s *fakeRosterStore) BeginImport(context.Context) (Tx, error) {
	return s.tx, nil
}

func testOwner() catalog.Owner {
	return catalog.Owner{Kind: catalog.OwnerOrganization, OrganizationID: "org1"}
}

func TestBulkImportAthletes_CreatesNewAthletes(t *testing.T) {
	tx := newFakeTx()
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	summary, err := imp.BulkImportAthletes(context.Background(), testOwner(), []RawRow{validRow()}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Created != 1 || summary.Updated != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if !tx.committed {
		t.Fatal("expected transaction to commit")
	}
}

func TestBulkImportAthletes_InvalidRowsCollectedAsErrors(t *testing.T) {
	tx := newFakeTx()
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	bad := validRow()
	bad[ColFamily] = ""

	summary, err := imp.BulkImportAthletes(context.Background(), testOwner(), []RawRow{validRow(), bad}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}

	if len(summary.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(summary.Errors))
	}
}

func TestBulkImportAthletes_DuplicateFederationIDWithinFileWarns(t *testing.T) {
	tx := newFakeTx()
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	summary, err := imp.BulkImportAthletes(context.Background(), testOwner(), []RawRow{validRow(), validRow()}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}

	if len(summary.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(summary.Warnings))
	}
}

func TestBulkImportAthletes_ExistingFederationIDUpdatesByDefault(t *testing.T) {
	tx := newFakeTx()
	owner := testOwner()
	existing := &catalog.Athlete{ID: "existing", Owner: owner, FederationID: "12345678"}
	tx.byFederationID[ownerKey(owner)+"|"+"12345678"] = existing
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	summary, err := imp.BulkImportAthletes(context.Background(), owner, []RawRow{validRow()}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Updated != 1 || summary.Created != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if len(tx.updated) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(tx.updated))
	}
}

func TestBulkImportAthletes_ExistingFederationIDSkippedWhenRequested(t *testing.T) {
	tx := newFakeTx()
	owner := testOwner()
	existing := &catalog.Athlete{ID: "existing", Owner: owner, FederationID: "12345678"}
	tx.byFederationID[ownerKey(owner)+"|"+"12345678"] = existing
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	summary, err := imp.BulkImportAthletes(context.Background(), owner, []RawRow{validRow()}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", summary.Skipped)
	}

	if len(tx.updated) != 0 {
		t.Fatalf("expected no updates, got %d", len(tx.updated))
	}
}

func TestBulkImportAthletes_StorageFailureRollsBackWholeFile(t *testing.T) {
	tx := newFakeTx()
	tx.failOnCreate = true
	store := &fakeRosterStore{tx: tx}
	imp := NewImporter(store, newTestValidator())

	_, err := imp.BulkImportAthletes(context.Background(), testOwner(), []RawRow{validRow()}, false)
	if err == nil {
		t.Fatal("expected error")
	}

	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}

	if tx.committed {
		t.Fatal("expected commit not to be called")
	}
}

func TestBulkImportAthletes_InvalidOwnerRejected(t *testing.T) {
	store := &fakeRosterStore{tx: newFakeTx()}
	imp := NewImporter(store, newTestValidator())

	_, err := imp.BulkImportAthletes(context.Background(), catalog.Owner{}, []RawRow{validRow()}, false)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
