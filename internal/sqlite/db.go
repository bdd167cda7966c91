package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ganot/hourbank/internal/keylock"
	"github.com/ganot/hourbank/migrations"
	_ "modernc.org/sqlite"
)

// DefaultLockTimeout bounds how long a writer waits for a project lock.
const DefaultLockTimeout = 5 * time.Second

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	locks       *keylock.Locker
	lockTimeout time.Duration
}

// New opens the SQLite database at path. Use ":memory:" for a private
// in-memory database.
func New(path string, lockTimeout time.Duration) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps in-memory databases
	// shared and serializes transactions inside the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &DB{DB: db, locks: keylock.New(), lockTimeout: lockTimeout}, nil
}

func dataSourceName(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Set("_txlock", "immediate")
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(path, "file:") + sep + params.Encode()
}

// Migrate applies pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Up(ctx, db.DB, migrations.SQLite)
}

// LockTimeout reports the configured project lock wait.
func (db *DB) LockTimeout() time.Duration {
	return db.lockTimeout
}
