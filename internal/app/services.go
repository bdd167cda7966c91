// Package app assembles the domain services on top of a store.
package app

import (
	"context"

	"github.com/ganot/hourbank/internal/domain/acceptance"
	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/ledger"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
	"github.com/shopspring/decimal"
)

// ProjectService defines project operations exposed to callers.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context, opts project.ListOptions) ([]project.Project, error)
	Rename(ctx context.Context, id, name, actor string) (*project.Project, error)
	Delete(ctx context.Context, id, actor string) error
}

// LifecycleService defines status operations exposed to callers.
type LifecycleService interface {
	Transition(ctx context.Context, req lifecycle.TransitionRequest) (*lifecycle.TransitionResult, error)
	GetValidTransitions(ctx context.Context, projectID string) (*lifecycle.ValidTransitions, error)
	GetHistory(ctx context.Context, projectID string, limit, offset int) (*lifecycle.HistoryPage, error)
	Machine() *lifecycle.Machine
}

// LedgerService defines hour budget operations exposed to callers.
type LedgerService interface {
	Extend(ctx context.Context, req ledger.ExtendRequest) (*ledger.ExtendResult, error)
	Adjust(ctx context.Context, req ledger.AdjustRequest) (*ledger.AdjustResult, error)
	Consume(ctx context.Context, projectID string, hours decimal.Decimal, actor string) (*project.Project, error)
	Release(ctx context.Context, projectID string, hours decimal.Decimal, actor string) (*project.Project, error)
	Transactions(ctx context.Context, projectID string, limit, offset int) (*ledger.TransactionPage, error)
	VerifyChain(ctx context.Context, projectID string) (*ledger.ChainReport, error)
}

// SweepService defines deadline operations exposed to callers.
type SweepService interface {
	CheckAndExpire(ctx context.Context) (*sweep.Result, error)
	NearDeadline(ctx context.Context, daysAhead int) ([]project.Project, error)
}

// AcceptanceService answers whether a project takes new work.
type AcceptanceService interface {
	CanAcceptRequests(ctx context.Context, projectID string) (*acceptance.Decision, error)
}

// ActivityService reads the audit log.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by the transports.
type Services struct {
	Projects   ProjectService
	Lifecycle  LifecycleService
	Ledger     LedgerService
	Sweep      SweepService
	Acceptance AcceptanceService
	Activity   ActivityService
}
