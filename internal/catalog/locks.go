package catalog

import (
	"fmt"
	"time"
)

// LockStore persists registry entries in the locks table.
type LockStore struct {
	db *DB
}

// Locks returns the lock table as a registry store.
func (db *DB) Locks() *LockStore {
	return &LockStore{db: db}
}

// Load returns every lock entry.
func (s *LockStore) Load() (map[string]string, error) {
	rows, err := s.db.conn.Query(`SELECT name, secret FROM locks`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load locks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, secret string
		if err := rows.Scan(&name, &secret); err != nil {
			return nil, err
		}
		out[name] = secret
	}
	return out, rows.Err()
}

// Put upserts the secret for name.
func (s *LockStore) Put(name, secret string) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO locks (name, secret, locked_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			secret    = excluded.secret,
			locked_at = excluded.locked_at
	`, name, secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("catalog: put lock: %w", err)
	}
	return nil
}

// Delete removes the entry for name.
func (s *LockStore) Delete(name string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM locks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("catalog: delete lock: %w", err)
	}
	return nil
}
