package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMinReasonLength is the minimum reason length for extensions and
// manual adjustments.
const DefaultMinReasonLength = 3

// MsgInsufficientHours is returned when an operation would push used hours
// above the budget.
const MsgInsufficientHours = "Insufficient hours in project bucket"

// Options tunes the ledger service.
type Options struct {
	MinReasonLength int
}

// Service applies budget mutations as locked read-modify-write transactions.
type Service struct {
	projects     ProjectRepository
	transactions TransactionRepository
	activities   ActivityLogger
	minReason    int
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a new ledger service.
func NewService(projects ProjectRepository, transactions TransactionRepository, activities ActivityLogger, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	minReason := opts.MinReasonLength
	if minReason <= 0 {
		minReason = DefaultMinReasonLength
	}
	return &Service{
		projects:     projects,
		transactions: transactions,
		activities:   activities,
		minReason:    minReason,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ExtendRequest raises a project's budget ceiling.
type ExtendRequest struct {
	ProjectID       string
	AdditionalHours decimal.Decimal
	Reason          string
	Actor           string
}

// ExtendResult reports the outcome of an extension.
type ExtendResult struct {
	Project         *project.Project `json:"project"`
	AdditionalHours decimal.Decimal  `json:"additionalHours"`
	NewTotal        decimal.Decimal  `json:"newTotal"`
	AvailableHours  decimal.Decimal  `json:"availableHours"`
	TransactionID   string           `json:"transactionId"`
}

// Extend increases totalHours by AdditionalHours.
func (s *Service) Extend(ctx context.Context, req ExtendRequest) (*ExtendResult, error) {
	if !req.AdditionalHours.IsPositive() {
		return nil, project.Validationf("additionalHours must be greater than 0")
	}
	reason, err := s.requireReason(req.Reason)
	if err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, req.ProjectID, req.Actor, project.KindExtension, &reason,
		func(p *project.Project) (decimal.Decimal, decimal.Decimal, error) {
			return p.TotalHours.Add(req.AdditionalHours), p.UsedHours, nil
		})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, res, activity.TypeHoursExtended,
		fmt.Sprintf("extended budget by %s hours to %s", req.AdditionalHours, res.project.TotalHours))

	return &ExtendResult{
		Project:         &res.project,
		AdditionalHours: req.AdditionalHours,
		NewTotal:        res.project.TotalHours,
		AvailableHours:  res.project.AvailableHours(),
		TransactionID:   res.txn.ID,
	}, nil
}

// AdjustRequest applies a signed manual correction to used hours.
type AdjustRequest struct {
	ProjectID string
	Delta     decimal.Decimal
	Reason    string
	Actor     string
}

// AdjustResult reports the outcome of a manual adjustment.
type AdjustResult struct {
	Project        *project.Project `json:"project"`
	Hours          decimal.Decimal  `json:"hours"`
	BalanceBefore  decimal.Decimal  `json:"balanceBefore"`
	BalanceAfter   decimal.Decimal  `json:"balanceAfter"`
	AvailableHours decimal.Decimal  `json:"availableHours"`
	TransactionID  string           `json:"transactionId"`
}

// Adjust adds Delta to usedHours; positive consumes, negative releases.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	if req.Delta.IsZero() {
		return nil, project.Validationf("adjustment must not be zero")
	}
	reason, err := s.requireReason(req.Reason)
	if err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, req.ProjectID, req.Actor, project.KindAdjustment, &reason,
		func(p *project.Project) (decimal.Decimal, decimal.Decimal, error) {
			used := p.UsedHours.Add(req.Delta)
			if used.IsNegative() {
				return decimal.Decimal{}, decimal.Decimal{}, project.Conflictf(MsgInsufficientHours)
			}
			return p.TotalHours, used, nil
		})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, res, activity.TypeHoursAdjusted,
		fmt.Sprintf("adjusted used hours by %s (%s -> %s)", req.Delta, res.txn.BalanceBefore, res.txn.BalanceAfter))

	return &AdjustResult{
		Project:        &res.project,
		Hours:          req.Delta,
		BalanceBefore:  res.txn.BalanceBefore,
		BalanceAfter:   res.txn.BalanceAfter,
		AvailableHours: res.project.AvailableHours(),
		TransactionID:  res.txn.ID,
	}, nil
}

// Consume adds hours to usedHours when estimated work is assigned.
func (s *Service) Consume(ctx context.Context, projectID string, hours decimal.Decimal, actor string) (*project.Project, error) {
	if hours.IsNegative() {
		return nil, project.Validationf("hours to consume must not be negative")
	}
	res, err := s.mutate(ctx, projectID, actor, project.KindConsumption, nil,
		func(p *project.Project) (decimal.Decimal, decimal.Decimal, error) {
			return p.TotalHours, p.UsedHours.Add(hours), nil
		})
	if err != nil {
		return nil, err
	}
	if res.written {
		s.logActivity(ctx, res, activity.TypeHoursConsumed, fmt.Sprintf("consumed %s hours", hours))
	}
	return &res.project, nil
}

// Release returns hours to the budget when work is cancelled or reassigned.
// Used hours floor at zero.
func (s *Service) Release(ctx context.Context, projectID string, hours decimal.Decimal, actor string) (*project.Project, error) {
	if hours.IsNegative() {
		return nil, project.Validationf("hours to release must not be negative")
	}
	res, err := s.mutate(ctx, projectID, actor, project.KindRelease, nil,
		func(p *project.Project) (decimal.Decimal, decimal.Decimal, error) {
			return p.TotalHours, decimal.Max(decimal.Zero, p.UsedHours.Sub(hours)), nil
		})
	if err != nil {
		return nil, err
	}
	if res.written {
		s.logActivity(ctx, res, activity.TypeHoursReleased, fmt.Sprintf("released %s hours", res.txn.Delta.Neg()))
	}
	return &res.project, nil
}

type mutation struct {
	project project.Project
	txn     project.HourTransaction
	written bool
}

// computeFunc derives the new (total, used) pair from the locked row.
type computeFunc func(p *project.Project) (total, used decimal.Decimal, err error)

// mutate is the single read-check-write path for every budget change. The
// row is re-read under the lock; nothing outside the store is called while
// the lock is held.
func (s *Service) mutate(ctx context.Context, projectID, actor string, kind project.TransactionKind, reason *string, compute computeFunc) (*mutation, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, project.Validationf("actor is required")
	}

	var res mutation
	err := s.projects.WithProjectLock(ctx, projectID, func(ctx context.Context, tx project.Tx) error {
		current := tx.Project()
		total, used, err := compute(current)
		if err != nil {
			return err
		}

		next := *current
		next.TotalHours = total
		next.UsedHours = used
		if !next.WithinBudget() {
			return project.Conflictf(MsgInsufficientHours)
		}

		delta := used.Sub(current.UsedHours)
		if kind == project.KindExtension {
			delta = total.Sub(current.TotalHours)
		}
		if delta.IsZero() && (kind == project.KindConsumption || kind == project.KindRelease) {
			res.project = *current
			return nil
		}

		now := s.now()
		if err := tx.SetHours(ctx, total, used, now); err != nil {
			return fmt.Errorf("updating hours: %w", err)
		}
		next.UpdatedAt = now

		res.txn = project.HourTransaction{
			ID:            uuid.NewString(),
			ProjectID:     current.ID,
			Kind:          kind,
			Delta:         delta,
			BalanceBefore: current.UsedHours,
			BalanceAfter:  used,
			TotalBefore:   current.TotalHours,
			TotalAfter:    total,
			Reason:        reason,
			PerformedBy:   actor,
			OccurredAt:    now,
		}
		if err := tx.AppendHourTransaction(ctx, &res.txn); err != nil {
			return fmt.Errorf("appending hour transaction: %w", err)
		}
		res.project = next
		res.written = true
		return nil
	})
	if err != nil {
		return nil, project.StoreError(projectID, err)
	}
	return &res, nil
}

func (s *Service) requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.minReason {
		return "", project.Validationf("reason must be at least %d characters", s.minReason)
	}
	return reason, nil
}

func (s *Service) logActivity(ctx context.Context, res *mutation, kind activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	err := s.activities.LogActivity(ctx, &activity.ActivityEntry{
		ProjectID:    res.project.ID,
		ActivityType: kind,
		Actor:        res.txn.PerformedBy,
		Summary:      summary,
		Details:      activity.Details(res.txn),
		CreatedAt:    res.txn.OccurredAt,
	})
	if err != nil {
		s.logger.Warn("failed to log activity", "project_id", res.project.ID, "type", kind, "error", err)
	}
}
