package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autodocwriter/autodoc/internal/storage"
)

// compile-time check that *DB implements storage.Backend
var _ storage.Backend = (*DB)(nil)

// GetItem returns the value stored for (profile, key). ok is false when the
// key was never written or has been removed.
func (db *DB) GetItem(ctx context.Context, profile, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE profile = ? AND key = ?`,
		profile, key,
	).Scan(&value)
	if err != nil {
		// QueryRow reports "no row" as an error; for a key-value lookup it
		// is the normal "never written" answer.
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: reading %s for profile %s: %w", key, profile, err)
	}
	return value, true, nil
}

// SetItem writes value, replacing whatever was stored under (profile, key).
//
// UPSERT:
// INSERT ... ON CONFLICT DO UPDATE turns the insert into an update when the
// primary key already exists. "excluded" names the row that failed to
// insert, so the new value and timestamp come from it. One statement, no
// read-then-write race between two requests of the same profile.
func (db *DB) SetItem(ctx context.Context, profile, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO local_storage (profile, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		profile, key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s for profile %s: %w", key, profile, err)
	}
	return nil
}

// RemoveItems deletes keys for profile. Missing keys are not an error.
func (db *DB) RemoveItems(ctx context.Context, profile string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	// database/sql has no slice parameters: build "?,?,?" with one
	// placeholder per key and pass the keys as individual arguments.
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, profile)
	for _, k := range keys {
		args = append(args, k)
	}

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM local_storage WHERE profile = ? AND key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing keys for profile %s: %w", profile, err)
	}
	return nil
}
