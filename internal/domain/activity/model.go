package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeProjectCreated   ActivityType = "project_created"
	TypeProjectRenamed   ActivityType = "project_renamed"
	TypeProjectDeleted   ActivityType = "project_deleted"
	TypeStatusTransition ActivityType = "status_transition"
	TypeHoursExtended    ActivityType = "hours_extended"
	TypeHoursAdjusted    ActivityType = "hours_adjusted"
	TypeHoursConsumed    ActivityType = "hours_consumed"
	TypeHoursReleased    ActivityType = "hours_released"
)

// ActivityEntry represents an event in the audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ProjectID    string       `json:"projectId"`
	ActivityType ActivityType `json:"type"`
	Actor        string       `json:"actor"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"createdAt"`
}
