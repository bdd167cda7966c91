package project

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a lifecycle status name. The set of valid statuses is owned by the
// lifecycle state machine; the constants below are the canonical defaults.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusOnHold    Status = "On Hold"
	StatusSuspended Status = "Suspended"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusExpired   Status = "Expired"
	StatusArchived  Status = "Archived"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// Project is the aggregate root holding an hour budget.
type Project struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Status     Status          `json:"status"`
	TotalHours decimal.Decimal `json:"totalHours"`
	UsedHours  decimal.Decimal `json:"usedHours"`
	Deadline   *time.Time      `json:"deadline,omitempty"`
	OwnerID    string          `json:"ownerId"`
	CreatedBy  string          `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// AvailableHours returns total minus used hours.
func (p *Project) AvailableHours() decimal.Decimal {
	return p.TotalHours.Sub(p.UsedHours)
}

// WithinBudget reports whether used hours lie in [0, total].
func (p *Project) WithinBudget() bool {
	return !p.UsedHours.IsNegative() && p.UsedHours.LessThanOrEqual(p.TotalHours)
}

// StatusHistoryEntry records one successful lifecycle transition.
type StatusHistoryEntry struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Reason     *string   `json:"reason,omitempty"`
	ChangedBy  string    `json:"changedBy"`
	ChangedAt  time.Time `json:"changedAt"`
}

// TransactionKind classifies an hour ledger entry.
type TransactionKind string

const (
	KindAllocation  TransactionKind = "allocation"
	KindExtension   TransactionKind = "extension"
	KindAdjustment  TransactionKind = "adjustment"
	KindConsumption TransactionKind = "consumption"
	KindRelease     TransactionKind = "release"
)

// HourTransaction is one append-only ledger row. Balances track used hours;
// the total columns track the budget ceiling so the chain reconstructs both.
type HourTransaction struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	ProjectID     string          `json:"projectId"`
	Kind          TransactionKind `json:"kind"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	TotalBefore   decimal.Decimal `json:"totalBefore"`
	TotalAfter    decimal.Decimal `json:"totalAfter"`
	Reason        *string         `json:"reason,omitempty"`
	PerformedBy   string          `json:"performedBy"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// ListOptions filters project listings.
type ListOptions struct {
	Status *Status
	Limit  int
	Offset int
}
