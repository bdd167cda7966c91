package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/hourbank/internal/repository"
)

// APIKeyRepository stores hashed API keys and resolves them to actors.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add registers token for actorID.
func (r *APIKeyRepository) Add(ctx context.Context, token, actorID, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, actor_id, description, created_at) VALUES ($1, $2, $3, $4)`,
		repository.HashAPIKey(token), actorID, description, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveActor returns the actor owning token and stamps its last use.
func (r *APIKeyRepository) ResolveActor(ctx context.Context, token string) (string, error) {
	var actorID string
	err := r.db.QueryRowContext(ctx, `
		UPDATE api_keys SET last_used = $2 WHERE key_hash = $1 RETURNING actor_id
	`, repository.HashAPIKey(token), time.Now().UTC()).Scan(&actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	return actorID, nil
}
