package postgres

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
	err := ex.QueryRowContext(ctx, `
		INSERT INTO project_hour_transactions (
			id, project_id, kind, delta, balance_before, balance_after,
			total_before, total_after, reason, performed_by, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq
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
		txn.OccurredAt,
	).Scan(&txn.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert hour transaction: %w", err)
	}
	return nil
}

// List returns one page of ledger entries for a project in ledger order and
// the total number of entries.
func (r *TransactionRepository) List(ctx context.Context, projectID string, limit, offset int) ([]project.HourTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_hour_transactions WHERE project_id = $1`, projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count hour transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, project_id, kind, delta, balance_before, balance_after,
			total_before, total_after, reason, performed_by, occurred_at
		FROM project_hour_transactions
		WHERE project_id = $1
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3
	`, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list hour transactions: %w", err)
	}
	defer rows.Close()

	txns := []project.HourTransaction{}
	for rows.Next() {
		var (
			txn    project.HourTransaction
			reason sql.NullString
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
			&txn.OccurredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan hour transaction: %w", err)
		}
		txn.Reason = stringPtr(reason)
		txn.OccurredAt = txn.OccurredAt.UTC()
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating hour transactions: %w", err)
	}
	return txns, total, nil
}
