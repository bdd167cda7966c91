package sweep_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
	"github.com/ganot/hourbank/internal/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deadlineRepo struct {
	mock.Mock
}

func (m *deadlineRepo) ListDeadlineBetween(ctx context.Context, status project.Status, from *time.Time, to time.Time) ([]project.Project, error) {
	args := m.Called(ctx, status, from, to)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

type transitioner struct {
	mock.Mock
}

func (m *transitioner) Transition(ctx context.Context, req lifecycle.TransitionRequest) (*lifecycle.TransitionResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*lifecycle.TransitionResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCheckAndExpire_RecordsFailures(t *testing.T) {
	ctx := context.Background()
	repo := &deadlineRepo{}
	repo.On("ListDeadlineBetween", ctx, project.StatusActive, (*time.Time)(nil), mock.Anything).
		Return([]project.Project{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)

	tr := &transitioner{}
	isFor := func(id string) any {
		return mock.MatchedBy(func(req lifecycle.TransitionRequest) bool {
			return req.ProjectID == id &&
				req.Target == project.StatusExpired &&
				req.Actor == sweep.SystemActor &&
				req.Reason != nil && *req.Reason == sweep.ExpiryReason
		})
	}
	tr.On("Transition", ctx, isFor("a")).Return(&lifecycle.TransitionResult{}, nil)
	tr.On("Transition", ctx, isFor("b")).Return(nil, project.Conflictf("Cannot transition from On Hold to Expired"))
	tr.On("Transition", ctx, isFor("c")).Return(nil, errors.New("database is locked"))

	svc := sweep.NewService(repo, tr, nil)
	res, err := svc.CheckAndExpire(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.ExpiredCount)
	require.Equal(t, []string{"a"}, res.ExpiredProjectIDs)
	require.Equal(t, []sweep.Failure{
		{ProjectID: "b", Error: "Cannot transition from On Hold to Expired"},
		{ProjectID: "c", Error: "database is locked"},
	}, res.Failures)
	tr.AssertExpectations(t)
}

func TestCheckAndExpire_SelectFailure(t *testing.T) {
	ctx := context.Background()
	repo := &deadlineRepo{}
	repo.On("ListDeadlineBetween", ctx, project.StatusActive, (*time.Time)(nil), mock.Anything).
		Return(nil, errors.New("boom"))

	svc := sweep.NewService(repo, &transitioner{}, nil)
	_, err := svc.CheckAndExpire(ctx)
	require.ErrorContains(t, err, "boom")
}

func TestNearDeadline_Window(t *testing.T) {
	ctx := context.Background()
	repo := &deadlineRepo{}
	repo.On("ListDeadlineBetween", ctx, project.StatusActive, mock.Anything, mock.Anything).Return(nil, nil)

	svc := sweep.NewService(repo, &transitioner{}, nil)
	projects, err := svc.NearDeadline(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, projects)

	call := repo.Calls[0]
	from := call.Arguments.Get(2).(*time.Time)
	to := call.Arguments.Get(3).(time.Time)
	require.NotNil(t, from)
	require.Equal(t, from.Add(time.Nanosecond), to)

	_, err = svc.NearDeadline(ctx, 3)
	require.NoError(t, err)
	call = repo.Calls[1]
	from = call.Arguments.Get(2).(*time.Time)
	to = call.Arguments.Get(3).(time.Time)
	require.Equal(t, from.AddDate(0, 0, 3).Add(time.Nanosecond), to)

	_, err = svc.NearDeadline(ctx, -1)
	require.ErrorIs(t, err, project.ErrValidation)
}

func newStack(t *testing.T) *app.Components {
	t.Helper()
	db, err := sqlite.New(":memory:", time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	store := app.NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })

	comps, err := app.Build(store, lifecycle.MustDefault(), nil, config.Default(), nil)
	require.NoError(t, err)
	return comps
}

func TestSweep_EndToEnd(t *testing.T) {
	ctx := context.Background()
	comps := newStack(t)
	svc := comps.Services

	past := time.Now().Add(-time.Hour)
	soon := time.Now().Add(48 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)

	create := func(name string, deadline *time.Time) *project.Project {
		p, err := svc.Projects.Create(ctx, project.CreateRequest{
			Name:       name,
			TotalHours: decimal.NewFromInt(10),
			Deadline:   deadline,
			Actor:      "alice",
		})
		require.NoError(t, err)
		return p
	}
	overdue := create("Overdue", &past)
	paused := create("Paused", &past)
	near := create("Near", &soon)
	create("Far", &later)
	create("Open ended", nil)

	reason := "waiting on client"
	_, err := svc.Lifecycle.Transition(ctx, lifecycle.TransitionRequest{
		ProjectID: paused.ID, Target: project.StatusOnHold, Reason: &reason, Actor: "alice",
	})
	require.NoError(t, err)

	nearList, err := svc.Sweep.NearDeadline(ctx, 7)
	require.NoError(t, err)
	require.Len(t, nearList, 1)
	require.Equal(t, near.ID, nearList[0].ID)

	res, err := svc.Sweep.CheckAndExpire(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{overdue.ID}, res.ExpiredProjectIDs)
	require.Empty(t, res.Failures)

	got, err := svc.Projects.Get(ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, project.StatusExpired, got.Status)

	history, err := svc.Lifecycle.GetHistory(ctx, overdue.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
	require.Equal(t, sweep.SystemActor, history.Entries[0].ChangedBy)
	require.Equal(t, sweep.ExpiryReason, *history.Entries[0].Reason)

	again, err := svc.Sweep.CheckAndExpire(ctx)
	require.NoError(t, err)
	require.Zero(t, again.ExpiredCount)

	history, err = svc.Lifecycle.GetHistory(ctx, overdue.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var sweeps atomic.Int32
	repo := &deadlineRepo{}
	repo.On("ListDeadlineBetween", mock.Anything, project.StatusActive, (*time.Time)(nil), mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return(nil, nil)
	svc := sweep.NewService(repo, &transitioner{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	require.Error(t, svc.Run(context.Background(), 0))
}
