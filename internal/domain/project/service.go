package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxNameLength bounds project names, in runes.
const MaxNameLength = 200

// ActivityLogger records audit entries. Failures never fail the caller.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Service handles project operations.
type Service struct {
	repo          Repository
	activities    ActivityLogger
	initialStatus Status
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a new project service. New projects start in
// initialStatus.
func NewService(repo Repository, activities ActivityLogger, initialStatus Status, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:          repo,
		activities:    activities,
		initialStatus: initialStatus,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Name       string
	TotalHours decimal.Decimal
	Deadline   *time.Time
	OwnerID    string
	Actor      string
}

// Create creates a new project with its initial hour allocation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if req.TotalHours.IsNegative() {
		return nil, Validationf("totalHours must not be negative")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, Validationf("actor is required")
	}

	now := s.now()
	owner := req.OwnerID
	if strings.TrimSpace(owner) == "" {
		owner = req.Actor
	}
	var deadline *time.Time
	if req.Deadline != nil {
		d := req.Deadline.UTC()
		deadline = &d
	}

	proj := &Project{
		ID:         uuid.NewString(),
		Name:       name,
		Status:     s.initialStatus,
		TotalHours: req.TotalHours,
		UsedHours:  decimal.Zero,
		Deadline:   deadline,
		OwnerID:    owner,
		CreatedBy:  req.Actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	allocation := &HourTransaction{
		ID:            uuid.NewString(),
		ProjectID:     proj.ID,
		Kind:          KindAllocation,
		Delta:         req.TotalHours,
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.Zero,
		TotalBefore:   decimal.Zero,
		TotalAfter:    req.TotalHours,
		PerformedBy:   req.Actor,
		OccurredAt:    now,
	}

	if err := s.repo.Create(ctx, proj, allocation); err != nil {
		return nil, StoreError(proj.ID, err)
	}

	s.logActivity(ctx, &activity.ActivityEntry{
		ProjectID:    proj.ID,
		ActivityType: activity.TypeProjectCreated,
		Actor:        req.Actor,
		Summary:      fmt.Sprintf("created project %s with %s hours", proj.Code, proj.TotalHours.String()),
	})

	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(id)
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns projects, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Project, error) {
	projects, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Rename changes the project name.
func (s *Service) Rename(ctx context.Context, id, name, actor string) (*Project, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(id)
		}
		return nil, fmt.Errorf("renaming project: %w", err)
	}
	s.logActivity(ctx, &activity.ActivityEntry{
		ProjectID:    id,
		ActivityType: activity.TypeProjectRenamed,
		Actor:        actor,
		Summary:      fmt.Sprintf("renamed project to %q", name),
	})
	return s.Get(ctx, id)
}

// Delete removes a project that has no work requests.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	proj, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountRequests(ctx, id)
	if err != nil {
		return fmt.Errorf("counting requests: %w", err)
	}
	if count > 0 {
		return Conflictf("Cannot delete project with %d associated requests", count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(id)
		}
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return Conflictf("Cannot delete project with associated requests")
		}
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logActivity(ctx, &activity.ActivityEntry{
		ProjectID:    id,
		ActivityType: activity.TypeProjectDeleted,
		Actor:        actor,
		Summary:      fmt.Sprintf("deleted project %s", proj.Code),
	})
	return nil
}

func (s *Service) logActivity(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "project_id", entry.ProjectID, "type", entry.ActivityType, "error", err)
	}
}

func validateName(name string) error {
	if name == "" {
		return Validationf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Validationf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}
