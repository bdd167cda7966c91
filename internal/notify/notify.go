// Package notify delivers lifecycle notifications.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ganot/hourbank/internal/domain/lifecycle"
)

// LogNotifier writes each status change to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// StatusChanged implements lifecycle.Notifier.
func (n *LogNotifier) StatusChanged(ctx context.Context, change lifecycle.StatusChange) error {
	attrs := []any{
		"project_id", change.ProjectID,
		"project_code", change.ProjectCode,
		"owner_id", change.OwnerID,
		"from", change.From,
		"to", change.To,
		"actor", change.Actor,
		"at", change.At,
	}
	if change.Reason != nil {
		attrs = append(attrs, "reason", *change.Reason)
	}
	n.logger.InfoContext(ctx, "notify: project status changed", attrs...)
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// called; their errors are joined.
type Multi []lifecycle.Notifier

// StatusChanged implements lifecycle.Notifier.
func (m Multi) StatusChanged(ctx context.Context, change lifecycle.StatusChange) error {
	var errs []error
	for _, n := range m {
		if err := n.StatusChanged(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
