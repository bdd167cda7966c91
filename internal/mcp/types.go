package mcp

// Tool inputs. Field descriptions feed the generated JSON schemas; fields
// tagged omitempty are optional.

type CreateProjectParams struct {
	Name       string  `json:"name" jsonschema:"Project display name"`
	TotalHours float64 `json:"total_hours" jsonschema:"Initial hour budget, zero or more"`
	Deadline   string  `json:"deadline,omitempty" jsonschema:"Deadline as an RFC 3339 timestamp"`
	OwnerID    string  `json:"owner_id,omitempty" jsonschema:"Owner; defaults to the caller"`
}

type ProjectIDParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
}

type ListProjectsParams struct {
	Status string `json:"status,omitempty" jsonschema:"Only list projects in this status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	Offset int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type RenameProjectParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Name      string `json:"name" jsonschema:"New display name"`
}

type TransitionStatusParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Status    string `json:"status" jsonschema:"Target status, for example Active or On Hold"`
	Reason    string `json:"reason,omitempty" jsonschema:"Why the status changes; required for some targets"`
}

type PageParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type ExpireOverdueParams struct{}

type NearDeadlineParams struct {
	DaysAhead *int `json:"days_ahead,omitempty" jsonschema:"Window in days, default 7; 0 means deadlines due now"`
}

type ExtendHoursParams struct {
	ProjectID       string  `json:"project_id" jsonschema:"Project ID"`
	AdditionalHours float64 `json:"additional_hours" jsonschema:"Hours to add to the budget, greater than zero"`
	Reason          string  `json:"reason" jsonschema:"Why the budget grows"`
}

type AdjustHoursParams struct {
	ProjectID  string  `json:"project_id" jsonschema:"Project ID"`
	Adjustment float64 `json:"adjustment" jsonschema:"Signed correction to used hours"`
	Reason     string  `json:"reason" jsonschema:"Why the correction is needed"`
}

type HoursParams struct {
	ProjectID string  `json:"project_id" jsonschema:"Project ID"`
	Hours     float64 `json:"hours" jsonschema:"Hours, zero or more"`
}

type GetRecentActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Only activity for this project"`
	Actor     string `json:"actor,omitempty" jsonschema:"Only activity by this actor"`
	Type      string `json:"type,omitempty" jsonschema:"Only activity of this type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

// Tool outputs that wrap domain values.

type ListProjectsResponse struct {
	Projects any `json:"projects"`
}

type ExpireOverdueResponse struct {
	Message         string   `json:"message"`
	ExpiredCount    int      `json:"expiredCount"`
	ExpiredProjects []string `json:"expiredProjects"`
	Failures        any      `json:"failures,omitempty"`
}

type NearDeadlineResponse struct {
	Projects  any `json:"projects"`
	DaysAhead int `json:"daysAhead"`
}

type HoursResponse struct {
	Project any `json:"project"`
}

type DeleteProjectResponse struct {
	Deleted string `json:"deleted"`
}

type GetRecentActivityResponse struct {
	Activity any `json:"activity"`
}
