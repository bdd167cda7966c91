package ledger

import (
	"context"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/project"
)

// ProjectRepository reads and locks project rows.
type ProjectRepository interface {
	project.Locker
	Get(ctx context.Context, id string) (*project.Project, error)
}

// TransactionRepository reads hour transactions in ledger order.
type TransactionRepository interface {
	List(ctx context.Context, projectID string, limit, offset int) ([]project.HourTransaction, int, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
