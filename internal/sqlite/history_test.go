package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_ListNewestFirst(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	proj := insertProject(t, db, "1")

	steps := []project.Status{project.StatusOnHold, project.StatusActive, project.StatusCompleted}
	from := project.StatusActive
	at := time.Now().UTC()
	for i, to := range steps {
		require.NoError(t, insertStatusHistory(ctx, db, &project.StatusHistoryEntry{
			ID:         uuid.NewString(),
			ProjectID:  proj.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  "u1",
			ChangedAt:  at.Add(time.Duration(i) * time.Second),
		}))
		from = to
	}

	repo := NewHistoryRepository(db)
	entries, total, err := repo.List(ctx, proj.ID, 2, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, entries, 2)
	require.Equal(t, project.StatusCompleted, entries[0].ToStatus)
	require.Equal(t, project.StatusActive, entries[1].ToStatus)
	require.Nil(t, entries[0].Reason)

	entries, _, err = repo.List(ctx, proj.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, project.StatusOnHold, entries[0].ToStatus)

	entries, total, err = repo.List(ctx, "other", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.Empty(t, entries)
}
