package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Namespaces for the kv table. Misc holds bot-wide metadata (e.g. the synced
// command record); Users holds one JSON ledger record per user id.
const (
	NSMisc  = "misc"
	NSUsers = "users"
)

// KV is a namespace-bound handle over the kv table. Consumers depend on the
// small Get/Set surface so tests can substitute an in-memory store.
type KV struct {
	db *sql.DB
	ns string
}

// NewKV returns a KV bound to the given namespace.
func NewKV(db *sql.DB, ns string) *KV { return &KV{db: db, ns: ns} }

// Get returns the value for key and whether it was present.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := k.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE ns=$1 AND key=$2`, k.ns, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s/%s: %w", k.ns, key, err)
	}
	return v, true, nil
}

// Set upserts the value for key.
func (k *KV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, `INSERT INTO kv(ns, key, value, updated_at) VALUES($1,$2,$3,NOW())
		ON CONFLICT (ns, key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, k.ns, key, value)
	if err != nil {
		return fmt.Errorf("kv set %s/%s: %w", k.ns, key, err)
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv WHERE ns=$1 AND key=$2`, k.ns, key); err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", k.ns, key, err)
	}
	return nil
}

// Keys lists all keys in the namespace, ordered.
func (k *KV) Keys(ctx context.Context) ([]string, error) {
	rows, err := k.db.QueryContext(ctx, `SELECT key FROM kv WHERE ns=$1 ORDER BY key`, k.ns)
	if err != nil {
		return nil, fmt.Errorf("kv keys %s: %w", k.ns, err)
	}
	defer func() { _ = rows.Close() }()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("kv keys %s: %w", k.ns, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv keys %s: %w", k.ns, err)
	}
	return keys, nil
}

// Count returns the number of keys in the namespace.
func (k *KV) Count(ctx context.Context) (int, error) {
	var n int
	if err := k.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv WHERE ns=$1`, k.ns).Scan(&n); err != nil {
		return 0, fmt.Errorf("kv count %s: %w", k.ns, err)
	}
	return n, nil
}
