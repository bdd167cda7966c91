package lifecycle

import (
	"context"
	"time"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/project"
)

// ProjectRepository reads and locks project rows.
type ProjectRepository interface {
	project.Locker
	Get(ctx context.Context, id string) (*project.Project, error)
}

// HistoryRepository reads status history, newest first.
type HistoryRepository interface {
	List(ctx context.Context, projectID string, limit, offset int) ([]project.StatusHistoryEntry, int, error)
}

// StatusChange describes a committed transition for notification.
type StatusChange struct {
	ProjectID   string
	ProjectCode string
	ProjectName string
	OwnerID     string
	From        project.Status
	To          project.Status
	Reason      *string
	Actor       string
	At          time.Time
}

// Notifier delivers status change notifications to interested parties.
type Notifier interface {
	StatusChanged(ctx context.Context, change StatusChange) error
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
