package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ganot/hourbank/internal/domain/project"
)

// TransactionRepository reads the hour ledger.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func insertHourTransaction(ctx context.Context, ex execer, txn *project.HourTransaction) error {
	result, err := ex.ExecContext(ctx, `
		INSERT INTO project_hour_transactions (
			id, project_id, kind, delta, balance_before, balance_after,
			total_before, total_after, reason, performed_by, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.ProjectID,
		txn.Kind,
		txn.Delta,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.TotalBefore,
		txn.TotalAfter,
		nullString(txn.Reason),
		txn.PerformedBy,
		formatTime(txn.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert hour transaction: %w", err)
	}
	if seq, err := result.LastInsertId(); err == nil {
		txn.Seq = seq
	}
	return nil
}

// List returns one page of ledger entries for a project in ledger order and
// the total number of entries.
func (r *TransactionRepository) List(ctx context.Context, projectID string, limit, offset int) ([]project.HourTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_hour_transactions WHERE project_id = ?`, projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count hour transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, project_id, kind, delta, balance_before, balance_after,
			total_before, total_after, reason, performed_by, occurred_at
		FROM project_hour_transactions
		WHERE project_id = ?
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list hour transactions: %w", err)
	}
	defer rows.Close()

	txns := []project.HourTransaction{}
	for rows.Next() {
		var (
			txn        project.HourTransaction
			reason     sql.NullString
			occurredAt string
		)
		if err := rows.Scan(
			&txn.Seq,
			&txn.ID,
			&txn.ProjectID,
			&txn.Kind,
			&txn.Delta,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.TotalBefore,
			&txn.TotalAfter,
			&reason,
			&txn.PerformedBy,
			&occurredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan hour transaction: %w", err)
		}
		txn.Reason = stringPtr(reason)
		if txn.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, 0, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating hour transactions: %w", err)
	}
	return txns, total, nil
}
