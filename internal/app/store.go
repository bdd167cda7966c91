package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/ledger"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
	"github.com/ganot/hourbank/internal/postgres"
	"github.com/ganot/hourbank/internal/sqlite"
)

// ProjectStore is everything the services need from the project table.
type ProjectStore interface {
	project.Repository
	project.Locker
	sweep.DeadlineRepository
}

// APIKeyStore resolves bearer tokens to actors.
type APIKeyStore interface {
	Add(ctx context.Context, token, actorID, description string) error
	ResolveActor(ctx context.Context, token string) (string, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Projects     ProjectStore
	History      lifecycle.HistoryRepository
	Transactions ledger.TransactionRepository
	Activity     activity.Repository
	APIKeys      APIKeyStore
	close        func() error
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewSQLiteStore wraps an open SQLite database.
func NewSQLiteStore(db *sqlite.DB) *Store {
	return &Store{
		Projects:     sqlite.NewProjectRepository(db),
		History:      sqlite.NewHistoryRepository(db),
		Transactions: sqlite.NewTransactionRepository(db),
		Activity:     sqlite.NewActivityRepository(db),
		APIKeys:      sqlite.NewAPIKeyRepository(db),
		close:        db.Close,
	}
}

// NewPostgresStore wraps an open PostgreSQL pool.
func NewPostgresStore(db *postgres.DB) *Store {
	return &Store{
		Projects:     postgres.NewProjectRepository(db),
		History:      postgres.NewHistoryRepository(db),
		Transactions: postgres.NewTransactionRepository(db),
		Activity:     postgres.NewActivityRepository(db),
		APIKeys:      postgres.NewAPIKeyRepository(db),
		close:        db.Close,
	}
}

// OpenStore opens and migrates the configured backend.
func OpenStore(ctx context.Context, cfg config.DBConfig, lockTimeout time.Duration, logger *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.URL,
			PingTimeout:     cfg.PingTimeout,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			LockTimeout:     lockTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database ready", "driver", "postgres")
		return NewPostgresStore(db), nil

	case "sqlite", "":
		if err := ensureDBDir(cfg.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path, lockTimeout)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database ready", "driver", "sqlite", "path", cfg.Path)
		return NewSQLiteStore(db), nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
