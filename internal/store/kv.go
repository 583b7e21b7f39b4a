// Package store provides SQLite-backed blob persistence for GreenStudio state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DB is a key/value table in a SQLite file. Each key holds one blob that is
// replaced wholesale on write.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns the blob stored under key. found is false when the key is absent.
func (d *DB) Get(key string) (value []byte, found bool, err error) {
	err = d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put replaces the blob stored under key.
func (d *DB) Put(key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, now)
	return err
}

// Delete removes key.
func (d *DB) Delete(key string) error {
	_, err := d.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// UpdatedAt returns when key was last written.
func (d *DB) UpdatedAt(key string) (time.Time, bool, error) {
	var s string
	err := d.db.QueryRow("SELECT updated_at FROM kv WHERE key = ?", key).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing updated_at: %w", err)
	}
	return t, true, nil
}

// Blob binds one key of the database. It satisfies session.Port.
type Blob struct {
	db  *DB
	key string
}

// Blob returns a handle for key.
func (d *DB) Blob(key string) *Blob {
	return &Blob{db: d, key: key}
}

// Load returns the stored blob.
func (b *Blob) Load() ([]byte, bool, error) {
	return b.db.Get(b.key)
}

// Delete removes the stored blob.
func (b *Blob) Delete() error {
	if err := b.db.Delete(b.key); err != nil {
		return fmt.Errorf("deleting %s: %w", b.key, err)
	}
	return nil
}

// UpdatedAt returns when the blob was last saved.
func (b *Blob) UpdatedAt() (time.Time, bool, error) {
	return b.db.UpdatedAt(b.key)
}

// Save replaces the stored blob.
func (b *Blob) Save(data []byte) error {
	if err := b.db.Put(b.key, data); err != nil {
		return fmt.Errorf("writing %s: %w", b.key, err)
	}
	return nil
}
