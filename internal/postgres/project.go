package postgres

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

// codeLockNamespace keeps code-assignment advisory locks apart from any other
// advisory lock users of the database.
const codeLockNamespace = 0x6862 << 16

// ProjectRepository implements project.Repository and project.Locker for PostgreSQL
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanProject(row rowScanner) (*project.Project, error) {
	var (
		proj     project.Project
		deadline sql.NullTime
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
		&proj.CreatedAt,
		&proj.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		proj.Deadline = &d
	}
	proj.CreatedAt = proj.CreatedAt.UTC()
	proj.UpdatedAt = proj.UpdatedAt.UTC()
	return &proj, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Create inserts the project and its allocation entry in one transaction.
// Code assignment for a year is serialized with a transaction-scoped
// advisory lock.
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project, allocation *project.HourTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	year := proj.CreatedAt.UTC().Year()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(codeLockNamespace+year)); err != nil {
		return fmt.Errorf("failed to lock project code sequence: %w", lockError(ctx, err))
	}

	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(code_seq), 0) + 1 FROM projects WHERE code_year = $1`, year,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to assign project code: %w", err)
	}
	code := fmt.Sprintf("%d-%d", seq, year)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (
			id, code, code_year, code_seq, name, status, total_hours, used_hours,
			deadline, owner_id, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		proj.ID,
		code,
		year,
		seq,
		proj.Name,
		proj.Status,
		proj.TotalHours,
		proj.UsedHours,
		nullTime(proj.Deadline),
		proj.OwnerID,
		proj.CreatedBy,
		proj.CreatedAt,
		proj.UpdatedAt,
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
	proj, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
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
		args = append(args, *opts.Status)
		query += fmt.Sprintf(` WHERE status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, code_seq DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	return r.queryProjects(ctx, query, args...)
}

// ListDeadlineBetween returns projects in status whose deadline lies in
// [from, to), earliest deadline first. A nil from means no lower bound.
func (r *ProjectRepository) ListDeadlineBetween(ctx context.Context, status project.Status, from *time.Time, to time.Time) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE status = $1 AND deadline IS NOT NULL AND deadline < $2`
	args := []any{status, to}
	if from != nil {
		args = append(args, *from)
		query += ` AND deadline >= $3`
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
		`UPDATE projects SET name = $1, updated_at = $2 WHERE id = $3`, name, at, id)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return requireRow(result)
}

// Delete removes a project together with its history and ledger rows
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(result)
}

// CountRequests returns the number of work requests attached to a project
func (r *ProjectRepository) CountRequests(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_requests WHERE project_id = $1`, id).Scan(&count)
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

// WithProjectLock runs fn in a transaction holding FOR UPDATE on the project
// row. Waiting longer than the configured lock timeout fails with
// repository.ErrLockTimeout.
func (r *ProjectRepository) WithProjectLock(ctx context.Context, id string, fn func(ctx context.Context, tx project.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	timeout := fmt.Sprintf("%dms", r.db.lockTimeout.Milliseconds())
	if _, err := sqlTx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	proj, err := scanProject(sqlTx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		if mapped := lockError(ctx, err); errors.Is(mapped, repository.ErrLockTimeout) {
			return mapped
		}
		return fmt.Errorf("failed to lock project: %w", err)
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
		`UPDATE projects SET total_hours = $1, used_hours = $2, updated_at = $3 WHERE id = $4`,
		total, used, at, t.proj.ID)
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
		`UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`, status, at, t.proj.ID)
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
