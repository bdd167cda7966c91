package project

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository provides persistence for projects.
type Repository interface {
	// Create inserts the project and its allocation entry atomically and
	// assigns the project code.
	Create(ctx context.Context, proj *Project, allocation *HourTransaction) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, opts ListOptions) ([]Project, error)
	Rename(ctx context.Context, id, name string, at time.Time) error
	Delete(ctx context.Context, id string) error
	CountRequests(ctx context.Context, id string) (int, error)
}

// Tx exposes the writes allowed while a project row is exclusively locked.
type Tx interface {
	// Project returns the row as read under the lock.
	Project() *Project
	SetHours(ctx context.Context, total, used decimal.Decimal, at time.Time) error
	SetStatus(ctx context.Context, status Status, at time.Time) error
	AppendHourTransaction(ctx context.Context, txn *HourTransaction) error
	AppendStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error
}

// Locker runs fn inside a transaction holding the exclusive lock on one
// project row. A non-nil error from fn rolls the transaction back.
type Locker interface {
	WithProjectLock(ctx context.Context, id string, fn func(ctx context.Context, tx Tx) error) error
}
