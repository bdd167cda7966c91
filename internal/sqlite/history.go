package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ganot/hourbank/internal/domain/project"
)

// HistoryRepository reads project status history.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func insertStatusHistory(ctx context.Context, ex execer, entry *project.StatusHistoryEntry) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO project_status_history (
			id, project_id, from_status, to_status, reason, changed_by, changed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.ProjectID,
		entry.FromStatus,
		entry.ToStatus,
		nullString(entry.Reason),
		entry.ChangedBy,
		formatTime(entry.ChangedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// List returns one page of history for a project, newest first, and the
// total number of entries.
func (r *HistoryRepository) List(ctx context.Context, projectID string, limit, offset int) ([]project.StatusHistoryEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_status_history WHERE project_id = ?`, projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count status history: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, from_status, to_status, reason, changed_by, changed_at
		FROM project_status_history
		WHERE project_id = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	entries := []project.StatusHistoryEntry{}
	for rows.Next() {
		var (
			entry     project.StatusHistoryEntry
			reason    sql.NullString
			changedAt string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ProjectID,
			&entry.FromStatus,
			&entry.ToStatus,
			&reason,
			&entry.ChangedBy,
			&changedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan status history: %w", err)
		}
		entry.Reason = stringPtr(reason)
		if entry.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating status history: %w", err)
	}
	return entries, total, nil
}
