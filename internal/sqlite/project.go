package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/repository"
	"github.com/shopspring/decimal"
)

const projectColumns = `id, code, name, status, total_hours, used_hours, deadline,
	owner_id, created_by, created_at, updated_at`

// ProjectRepository implements project.Repository and project.Locker for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanProject(row rowScanner) (*project.Project, error) {
	var (
		proj                 project.Project
		deadline             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&proj.ID,
		&proj.Code,
		&proj.Name,
		&proj.Status,
		&proj.TotalHours,
		&proj.UsedHours,
		&deadline,
		&proj.OwnerID,
		&proj.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if proj.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, err
	}
	if proj.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if proj.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &proj, nil
}

// Create inserts the project and its allocation entry in one transaction.
// The project code is assigned here as the next sequence for the creation
// year.
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project, allocation *project.HourTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", lockError(ctx, err))
	}
	defer tx.Rollback()

	year := proj.CreatedAt.UTC().Year()
	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(code_seq), 0) + 1 FROM projects WHERE code_year = ?`, year,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to assign project code: %w", err)
	}
	code := fmt.Sprintf("%d-%d", seq, year)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (
			id, code, code_year, code_seq, name, status, total_hours, used_hours,
			deadline, owner_id, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		proj.ID,
		code,
		year,
		seq,
		proj.Name,
		proj.Status,
		proj.TotalHours,
		proj.UsedHours,
		formatNullTime(proj.Deadline),
		proj.OwnerID,
		proj.CreatedBy,
		formatTime(proj.CreatedAt),
		formatTime(proj.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create project: %w", repository.ErrUniqueViolation)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	if allocation != nil {
		if err := insertHourTransaction(ctx, tx, allocation); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	proj.Code = code
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return proj, nil
}

// List returns projects, newest first
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	args := []any{}
	if opts.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, *opts.Status)
	}
	query += ` ORDER BY created_at DESC, code_seq DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	return r.queryProjects(ctx, query, args...)
}

// ListDeadlineBetween returns projects in status whose deadline lies in
// [from, to), earliest deadline first. A nil from means no lower bound.
func (r *ProjectRepository) ListDeadlineBetween(ctx context.Context, status project.Status, from *time.Time, to time.Time) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE status = ? AND deadline IS NOT NULL AND deadline < ?`
	args := []any{status, formatTime(to)}
	if from != nil {
		query += ` AND deadline >= ?`
		args = append(args, formatTime(*from))
	}
	query += ` ORDER BY deadline ASC`

	return r.queryProjects(ctx, query, args...)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// Rename updates the project name
func (r *ProjectRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", lockError(ctx, err))
	}
	return requireRow(result)
}

// Delete removes a project together with its history and ledger rows
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete project: %w", lockError(ctx, err))
	}
	return requireRow(result)
}

// CountRequests returns the number of work requests attached to a project
func (r *ProjectRepository) CountRequests(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_requests WHERE project_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// WithProjectLock runs fn in a write transaction while holding the
// in-process lock for id. The row is re-read after the lock is taken.
func (r *ProjectRepository) WithProjectLock(ctx context.Context, id string, fn func(ctx context.Context, tx project.Tx) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.db.lockTimeout)
	unlock, err := r.db.locks.Lock(lockCtx, id)
	cancel()
	if err != nil {
		return lockError(ctx, err)
	}
	defer unlock()

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", lockError(ctx, err))
	}
	defer sqlTx.Rollback()

	proj, err := scanProject(sqlTx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read locked project: %w", err)
	}

	if err := fn(ctx, &lockedTx{tx: sqlTx, proj: proj}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", lockError(ctx, err))
	}
	return nil
}

// lockedTx implements project.Tx on top of an open transaction.
type lockedTx struct {
	tx   *sql.Tx
	proj *project.Project
}

func (t *lockedTx) Project() *project.Project {
	p := *t.proj
	return &p
}

func (t *lockedTx) SetHours(ctx context.Context, total, used decimal.Decimal, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET total_hours = ?, used_hours = ?, updated_at = ? WHERE id = ?`,
		total, used, formatTime(at), t.proj.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update hours: %w", err)
	}
	t.proj.TotalHours = total
	t.proj.UsedHours = used
	t.proj.UpdatedAt = at
	return nil
}

func (t *lockedTx) SetStatus(ctx context.Context, status project.Status, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(at), t.proj.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	t.proj.Status = status
	t.proj.UpdatedAt = at
	return nil
}

func (t *lockedTx) AppendHourTransaction(ctx context.Context, txn *project.HourTransaction) error {
	return insertHourTransaction(ctx, t.tx, txn)
}

func (t *lockedTx) AppendStatusHistory(ctx context.Context, entry *project.StatusHistoryEntry) error {
	return insertStatusHistory(ctx, t.tx, entry)
}
