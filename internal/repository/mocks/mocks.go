package mocks

import (
	"context"
	"time"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository and project.Locker.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project, allocation *project.HourTransaction) error {
	args := m.Called(ctx, proj, allocation)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	args := m.Called(ctx, id, name, at)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) CountRequests(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// WithProjectLock runs fn against the project.Tx returned by the expectation.
// A nil Tx with an error simulates a failed lock.
func (m *ProjectRepository) WithProjectLock(ctx context.Context, id string, fn func(ctx context.Context, tx project.Tx) error) error {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return err
	}
	tx, ok := args.Get(0).(project.Tx)
	if !ok {
		return nil
	}
	return fn(ctx, tx)
}

// Tx is a mock for project.Tx.
type Tx struct {
	mock.Mock
}

func (m *Tx) Project() *project.Project {
	args := m.Called()
	if proj, ok := args.Get(0).(*project.Project); ok {
		p := *proj
		return &p
	}
	return nil
}

func (m *Tx) SetHours(ctx context.Context, total, used decimal.Decimal, at time.Time) error {
	args := m.Called(ctx, total, used, at)
	return args.Error(0)
}

func (m *Tx) SetStatus(ctx context.Context, status project.Status, at time.Time) error {
	args := m.Called(ctx, status, at)
	return args.Error(0)
}

func (m *Tx) AppendHourTransaction(ctx context.Context, txn *project.HourTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *Tx) AppendStatusHistory(ctx context.Context, entry *project.StatusHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// HistoryRepository is a mock for lifecycle.HistoryRepository.
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) List(ctx context.Context, projectID string, limit, offset int) ([]project.StatusHistoryEntry, int, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if list, ok := args.Get(0).([]project.StatusHistoryEntry); ok {
		return list, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// TransactionRepository is a mock for ledger.TransactionRepository.
type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) List(ctx context.Context, projectID string, limit, offset int) ([]project.HourTransaction, int, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if list, ok := args.Get(0).([]project.HourTransaction); ok {
		return list, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityLogger is a mock for the services' ActivityLogger collaborator.
type ActivityLogger struct {
	mock.Mock
}

func (m *ActivityLogger) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Notifier is a mock for lifecycle.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) StatusChanged(ctx context.Context, change lifecycle.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}
