package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trackmeet/engine/internal/operator"
)

// OperatorKeyStore is the Postgres-backed implementation of operator.Store,
// grounded on the same lookup-hash-then-verify pattern used for every
// credential store in this system.
type OperatorKeyStore struct {
	db *Connection
}

func NewOperatorKeyStore(db *Connection) *OperatorKeyStore {
	return &OperatorKeyStore{db: db}
}

func (s *OperatorKeyStore) FindByLookupHash(ctx context.Context, lookupHash string) (*operator.Key, error) {
	const q = `SELECT id, key_hash, key_lookup_hash, name, permissions, created_at, expires_at, active
		FROM operator_keys WHERE key_lookup_hash=$1`

	var (
		k         operator.Key
		permsJSON []byte
		expiresAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, q, lookupHash).Scan(&k.ID, &k.Hash, &k.LookupHash, &k.Name, &permsJSON,
		&k.CreatedAt, &expiresAt, &k.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, operator.ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find operator key: %w", err)
	}

	var perms []operator.Permission
	if err := json.Unmarshal(permsJSON, &perms); err != nil {
		return nil, fmt.Errorf("unmarshal operator key permissions: %w", err)
	}

	k.Permissions = perms

	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Time
	}

	return &k, nil
}

func (s *OperatorKeyStore) Add(ctx context.Context, key *operator.Key) error {
	permsJSON, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("marshal operator key permissions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add operator key: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO operator_keys (id, key_hash, key_lookup_hash, name, permissions, created_at, expires_at, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	if _, err := tx.ExecContext(ctx, q, key.ID, key.Hash, key.LookupHash, key.Name, permsJSON,
		key.CreatedAt, nullTimePtr(key.ExpiresAt), key.Active); err != nil {
		return fmt.Errorf("insert operator key: %w", err)
	}

	const auditQ = `INSERT INTO operator_key_audit_log (id, operator_key_id, action, detail) VALUES (gen_random_uuid(), $1, 'issued', $2)`

	if _, err := tx.ExecContext(ctx, auditQ, key.ID, key.Name); err != nil {
		return fmt.Errorf("write operator key audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add operator key: %w", err)
	}

	return nil
}

func (s *OperatorKeyStore) Update(ctx context.Context, key *operator.Key) error {
	permsJSON, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("marshal operator key permissions: %w", err)
	}

	const q = `UPDATE operator_keys SET name=$2, permissions=$3, expires_at=$4, active=$5 WHERE id=$1`

	_, err = s.db.ExecContext(ctx, q, key.ID, key.Name, permsJSON, nullTimePtr(key.ExpiresAt), key.Active)
	if err != nil {
		return fmt.Errorf("update operator key: %w", err)
	}

	return nil
}

func (s *OperatorKeyStore) Delete(ctx context.Context, keyID string) error {
	const q = `UPDATE operator_keys SET active=FALSE WHERE id=$1`

	res, err := s.db.ExecContext(ctx, q, keyID)
	if err != nil {
		return fmt.Errorf("revoke operator key: %w", err)
	}

	return checkRowsAffected(res, operator.ErrKeyNotFound)
}

func (s *OperatorKeyStore) List(ctx context.Context) ([]*operator.Key, error) {
	const q = `SELECT id, key_hash, name, permissions, created_at, expires_at, active FROM operator_keys
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list operator keys: %w", err)
	}

	defer rows.Close()

	var out []*operator.Key

	for rows.Next() {
		var (
			k         operator.Key
			permsJSON []byte
			expiresAt sql.NullTime
		)

		if err := rows.Scan(&k.ID, &k.Hash, &k.Name, &permsJSON, &k.CreatedAt, &expiresAt, &k.Active); err != nil {
			return nil, fmt.Errorf("scan operator key: %w", err)
		}

		var perms []operator.Permission
		if err := json.Unmarshal(permsJSON, &perms); err != nil {
			return nil, fmt.Errorf("unmarshal operator key permissions: %w", err)
		}

		k.Permissions = perms

		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}

		out = append(out, &k)
	}

	return out, rows.Err()
}
