package lifecycle

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
)

const (
	// DefaultMinReasonLength applies when Options leaves it unset.
	DefaultMinReasonLength = 3
	// DefaultHistoryLimit is the page size used when none is given.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps history page sizes.
	MaxHistoryLimit = 500
)

// Options tunes the transition service.
type Options struct {
	MinReasonLength int
}

// Service performs status transitions against the state machine.
type Service struct {
	projects   ProjectRepository
	history    HistoryRepository
	machine    *Machine
	notifier   Notifier
	activities ActivityLogger
	minReason  int
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new lifecycle service.
func NewService(
	projects ProjectRepository,
	history HistoryRepository,
	machine *Machine,
	notifier Notifier,
	activities ActivityLogger,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	minReason := opts.MinReasonLength
	if minReason <= 0 {
		minReason = DefaultMinReasonLength
	}
	return &Service{
		projects:   projects,
		history:    history,
		machine:    machine,
		notifier:   notifier,
		activities: activities,
		minReason:  minReason,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Machine returns the state machine the service enforces.
func (s *Service) Machine() *Machine {
	return s.machine
}

// TransitionRequest describes a status change.
type TransitionRequest struct {
	ProjectID string
	Target    project.Status
	Reason    *string
	Actor     string
}

// TransitionResult is returned after a committed transition.
type TransitionResult struct {
	Project         *project.Project `json:"project"`
	HistoryID       string           `json:"historyId"`
	ValidNextStates []project.Status `json:"validNextStates"`
}

// Transition moves a project to req.Target, recording one history entry.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	target := project.Status(strings.TrimSpace(string(req.Target)))
	if !s.machine.IsKnown(target) {
		return nil, project.Validationf("Invalid status")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, project.Validationf("actor is required")
	}

	var reason *string
	if req.Reason != nil {
		if trimmed := strings.TrimSpace(*req.Reason); trimmed != "" {
			reason = &trimmed
		}
	}

	var (
		updated project.Project
		entry   project.StatusHistoryEntry
	)
	err := s.projects.WithProjectLock(ctx, req.ProjectID, func(ctx context.Context, tx project.Tx) error {
		current := tx.Project()
		if !s.machine.CanTransition(current.Status, target) {
			return project.Conflictf("Cannot transition from %s to %s", current.Status, target)
		}
		if err := s.checkReason(target, reason); err != nil {
			return err
		}

		now := s.now()
		if err := tx.SetStatus(ctx, target, now); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		entry = project.StatusHistoryEntry{
			ID:         uuid.NewString(),
			ProjectID:  current.ID,
			FromStatus: current.Status,
			ToStatus:   target,
			Reason:     reason,
			ChangedBy:  req.Actor,
			ChangedAt:  now,
		}
		if err := tx.AppendStatusHistory(ctx, &entry); err != nil {
			return fmt.Errorf("appending status history: %w", err)
		}

		updated = *current
		updated.Status = target
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, project.StoreError(req.ProjectID, err)
	}

	s.afterTransition(ctx, &updated, entry)

	return &TransitionResult{
		Project:         &updated,
		HistoryID:       entry.ID,
		ValidNextStates: s.machine.ValidNextStates(target),
	}, nil
}

func (s *Service) checkReason(target project.Status, reason *string) error {
	if !s.machine.RequiresReason(target) {
		return nil
	}
	if reason == nil {
		return project.Validationf("Reason is required when changing status to %s", target)
	}
	if utf8.RuneCountInString(*reason) < s.minReason {
		return project.Validationf("Reason must be at least %d characters", s.minReason)
	}
	return nil
}

// afterTransition runs the best-effort side effects once the transaction has
// committed.
func (s *Service) afterTransition(ctx context.Context, proj *project.Project, entry project.StatusHistoryEntry) {
	s.logger.Info("project status changed",
		"project_id", proj.ID,
		"from", entry.FromStatus,
		"to", entry.ToStatus,
		"actor", entry.ChangedBy,
	)

	if s.notifier != nil {
		err := s.notifier.StatusChanged(ctx, StatusChange{
			ProjectID:   proj.ID,
			ProjectCode: proj.Code,
			ProjectName: proj.Name,
			OwnerID:     proj.OwnerID,
			From:        entry.FromStatus,
			To:          entry.ToStatus,
			Reason:      entry.Reason,
			Actor:       entry.ChangedBy,
			At:          entry.ChangedAt,
		})
		if err != nil {
			s.logger.Warn("status notification failed", "project_id", proj.ID, "error", err)
		}
	}

	if s.activities != nil {
		err := s.activities.LogActivity(ctx, &activity.ActivityEntry{
			ProjectID:    proj.ID,
			ActivityType: activity.TypeStatusTransition,
			Actor:        entry.ChangedBy,
			Summary:      fmt.Sprintf("status changed from %s to %s", entry.FromStatus, entry.ToStatus),
			Details: activity.Details(map[string]any{
				"historyId": entry.ID,
				"from":      entry.FromStatus,
				"to":        entry.ToStatus,
				"reason":    entry.Reason,
			}),
			CreatedAt: entry.ChangedAt,
		})
		if err != nil {
			s.logger.Warn("failed to log activity", "project_id", proj.ID, "error", err)
		}
	}
}

// ValidTransitions describes where a project can go next.
type ValidTransitions struct {
	CurrentStatus   project.Status   `json:"currentStatus"`
	ValidNextStates []project.Status `json:"validNextStates"`
	RequiresReason  []project.Status `json:"requiresReason"`
}

// GetValidTransitions returns the transitions available to a project.
func (s *Service) GetValidTransitions(ctx context.Context, projectID string) (*ValidTransitions, error) {
	proj, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, project.StoreError(projectID, err)
	}
	next := s.machine.ValidNextStates(proj.Status)
	return &ValidTransitions{
		CurrentStatus:   proj.Status,
		ValidNextStates: next,
		RequiresReason:  s.machine.ReasonRequired(next),
	}, nil
}

// HistoryPage is one page of status history, newest first.
type HistoryPage struct {
	Entries []project.StatusHistoryEntry `json:"history"`
	Total   int                          `json:"total"`
	Limit   int                          `json:"limit"`
	Offset  int                          `json:"offset"`
}

// GetHistory returns status history for a project.
func (s *Service) GetHistory(ctx context.Context, projectID string, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		return nil, project.Validationf("offset must not be negative")
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, project.StoreError(projectID, err)
	}
	entries, total, err := s.history.List(ctx, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing status history: %w", err)
	}
	if entries == nil {
		entries = []project.StatusHistoryEntry{}
	}
	return &HistoryPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}
