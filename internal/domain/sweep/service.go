package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
)

const (
	// SystemActor performs automatic transitions.
	SystemActor = "system"
	// ExpiryReason is recorded on every automatic expiration.
	ExpiryReason = "Deadline passed"
	// DefaultDaysAhead is the near-deadline window when none is given.
	DefaultDaysAhead = 7
)

// DeadlineRepository selects projects by status and deadline.
type DeadlineRepository interface {
	// ListDeadlineBetween returns projects in status whose deadline lies in
	// [from, to). A nil from means no lower bound.
	ListDeadlineBetween(ctx context.Context, status project.Status, from *time.Time, to time.Time) ([]project.Project, error)
}

// Transitioner performs lifecycle transitions.
type Transitioner interface {
	Transition(ctx context.Context, req lifecycle.TransitionRequest) (*lifecycle.TransitionResult, error)
}

// Service expires overdue projects.
type Service struct {
	projects  DeadlineRepository
	lifecycle Transitioner
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new sweep service.
func NewService(projects DeadlineRepository, transitioner Transitioner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		projects:  projects,
		lifecycle: transitioner,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Failure records a project the sweep could not expire.
type Failure struct {
	ProjectID string `json:"projectId"`
	Error     string `json:"error"`
}

// Result summarizes one sweep pass.
type Result struct {
	ExpiredCount      int       `json:"expiredCount"`
	ExpiredProjectIDs []string  `json:"expiredProjectIds"`
	Failures          []Failure `json:"failures,omitempty"`
}

// CheckAndExpire moves every Active project past its deadline to Expired.
// Each project is its own transaction; failures are logged and skipped.
func (s *Service) CheckAndExpire(ctx context.Context) (*Result, error) {
	now := s.now()
	overdue, err := s.projects.ListDeadlineBetween(ctx, project.StatusActive, nil, now)
	if err != nil {
		return nil, fmt.Errorf("selecting overdue projects: %w", err)
	}

	res := &Result{ExpiredProjectIDs: []string{}}
	for _, proj := range overdue {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("expiration sweep interrupted", "remaining", len(overdue)-res.ExpiredCount-len(res.Failures), "error", err)
			break
		}

		reason := ExpiryReason
		_, err := s.lifecycle.Transition(ctx, lifecycle.TransitionRequest{
			ProjectID: proj.ID,
			Target:    project.StatusExpired,
			Reason:    &reason,
			Actor:     SystemActor,
		})
		if err != nil {
			if errors.Is(err, project.ErrConflict) {
				s.logger.Info("project left Active before expiry", "project_id", proj.ID, "error", err)
			} else {
				s.logger.Error("failed to expire project", "project_id", proj.ID, "error", err)
			}
			res.Failures = append(res.Failures, Failure{ProjectID: proj.ID, Error: project.Message(err)})
			continue
		}
		res.ExpiredCount++
		res.ExpiredProjectIDs = append(res.ExpiredProjectIDs, proj.ID)
	}

	if res.ExpiredCount > 0 || len(res.Failures) > 0 {
		s.logger.Info("expiration sweep finished", "expired", res.ExpiredCount, "failed", len(res.Failures))
	}
	return res, nil
}

// NearDeadline lists Active projects whose deadline falls in
// [now, now+daysAhead days]. Zero selects deadlines due exactly now.
func (s *Service) NearDeadline(ctx context.Context, daysAhead int) ([]project.Project, error) {
	if daysAhead < 0 {
		return nil, project.Validationf("daysAhead must not be negative")
	}
	now := s.now()
	// The window is inclusive of its end; nudge past it for the half-open query.
	to := now.AddDate(0, 0, daysAhead).Add(time.Nanosecond)
	projects, err := s.projects.ListDeadlineBetween(ctx, project.StatusActive, &now, to)
	if err != nil {
		return nil, fmt.Errorf("selecting projects near deadline: %w", err)
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	s.logger.Info("expiration sweep scheduled", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.CheckAndExpire(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("expiration sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
