package project_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/repository"
	"github.com/ganot/hourbank/internal/repository/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	activities := &mocks.ActivityLogger{}

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	repo.On("Create", ctx, mock.AnythingOfType("*project.Project"), mock.AnythingOfType("*project.HourTransaction")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*project.Project).Code = "1-2026"
		}).
		Return(nil)
	activities.On("LogActivity", ctx, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeProjectCreated && strings.Contains(e.Summary, "1-2026")
	})).Return(nil)

	svc := project.NewService(repo, activities, project.StatusActive, nil)
	proj, err := svc.Create(ctx, project.CreateRequest{
		Name:       "  Website  ",
		TotalHours: decimal.RequireFromString("12.5"),
		Deadline:   &deadline,
		Actor:      "alice",
	})
	require.NoError(t, err)
	require.Equal(t, "Website", proj.Name)
	require.Equal(t, "1-2026", proj.Code)
	require.Equal(t, project.StatusActive, proj.Status)
	require.Equal(t, "alice", proj.OwnerID)
	require.True(t, proj.UsedHours.IsZero())
	require.Equal(t, time.UTC, proj.Deadline.Location())

	allocation := repo.Calls[0].Arguments.Get(2).(*project.HourTransaction)
	require.Equal(t, project.KindAllocation, allocation.Kind)
	require.True(t, allocation.TotalAfter.Equal(decimal.RequireFromString("12.5")))
	require.True(t, allocation.BalanceAfter.IsZero())
	require.Equal(t, proj.ID, allocation.ProjectID)

	repo.AssertExpectations(t)
	activities.AssertExpectations(t)
}

func TestProjectService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, nil, project.StatusActive, nil)

	tests := []struct {
		name string
		req  project.CreateRequest
	}{
		{"empty name", project.CreateRequest{Name: " ", Actor: "alice"}},
		{"long name", project.CreateRequest{Name: strings.Repeat("x", project.MaxNameLength+1), Actor: "alice"}},
		{"negative hours", project.CreateRequest{Name: "P", TotalHours: decimal.NewFromInt(-1), Actor: "alice"}},
		{"no actor", project.CreateRequest{Name: "P"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			require.ErrorIs(t, err, project.ErrValidation)
		})
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_CreateStoreBusy(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Create", ctx, mock.AnythingOfType("*project.Project"), mock.AnythingOfType("*project.HourTransaction")).
		Return(repository.ErrLockTimeout).Once()
	dbErr := errors.New("disk full")
	repo.On("Create", ctx, mock.AnythingOfType("*project.Project"), mock.AnythingOfType("*project.HourTransaction")).
		Return(dbErr).Once()

	svc := project.NewService(repo, nil, project.StatusActive, nil)
	req := project.CreateRequest{Name: "Website", TotalHours: decimal.NewFromInt(4), Actor: "alice"}

	_, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, project.ErrConcurrency)

	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, dbErr)
	repo.AssertExpectations(t)
}

func TestProjectService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := project.NewService(repo, nil, project.StatusActive, nil)
	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, project.ErrNotFound)
	require.Equal(t, "project missing not found", project.Message(err))
}

func TestProjectService_Rename(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Rename", ctx, "p1", "New", mock.AnythingOfType("time.Time")).Return(nil)
	repo.On("Get", ctx, "p1").Return(&project.Project{ID: "p1", Name: "New"}, nil)

	svc := project.NewService(repo, nil, project.StatusActive, nil)
	proj, err := svc.Rename(ctx, "p1", " New ", "alice")
	require.NoError(t, err)
	require.Equal(t, "New", proj.Name)
}

func TestProjectService_DeleteBlockedByRequests(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(&project.Project{ID: "p1", Code: "1-2026"}, nil)
	repo.On("CountRequests", ctx, "p1").Return(2, nil)

	svc := project.NewService(repo, nil, project.StatusActive, nil)
	err := svc.Delete(ctx, "p1", "alice")
	require.ErrorIs(t, err, project.ErrConflict)
	require.Equal(t, "Cannot delete project with 2 associated requests", project.Message(err))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestProjectService_DeleteRaceWithRequestInsert(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(&project.Project{ID: "p1"}, nil)
	repo.On("CountRequests", ctx, "p1").Return(0, nil)
	repo.On("Delete", ctx, "p1").Return(repository.ErrForeignKeyViolation)

	svc := project.NewService(repo, nil, project.StatusActive, nil)
	err := svc.Delete(ctx, "p1", "alice")
	require.ErrorIs(t, err, project.ErrConflict)
}

func TestProjectService_ActivityFailureIgnored(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	activities := &mocks.ActivityLogger{}
	repo.On("Get", ctx, "p1").Return(&project.Project{ID: "p1"}, nil)
	repo.On("CountRequests", ctx, "p1").Return(0, nil)
	repo.On("Delete", ctx, "p1").Return(nil)
	activities.On("LogActivity", ctx, mock.Anything).Return(errors.New("audit down"))

	svc := project.NewService(repo, activities, project.StatusActive, nil)
	require.NoError(t, svc.Delete(ctx, "p1", "alice"))
	activities.AssertExpectations(t)
}

func TestStoreError(t *testing.T) {
	require.NoError(t, project.StoreError("p1", nil))
	require.ErrorIs(t, project.StoreError("p1", repository.ErrNotFound), project.ErrNotFound)
	require.ErrorIs(t, project.StoreError("p1", repository.ErrLockTimeout), project.ErrConcurrency)

	domainErr := project.Conflictf("nope")
	require.Same(t, domainErr, project.StoreError("p1", domainErr))

	other := errors.New("boom")
	require.Equal(t, other, project.StoreError("p1", other))
	require.Equal(t, "boom", project.Message(other))
}

func TestProject_Budget(t *testing.T) {
	p := project.Project{TotalHours: decimal.NewFromInt(10), UsedHours: decimal.NewFromInt(4)}
	require.True(t, p.AvailableHours().Equal(decimal.NewFromInt(6)))
	require.True(t, p.WithinBudget())

	p.UsedHours = decimal.NewFromInt(11)
	require.False(t, p.WithinBudget())
	p.UsedHours = decimal.NewFromInt(-1)
	require.False(t, p.WithinBudget())
}
