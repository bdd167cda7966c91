package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganot/hourbank/internal/domain/lifecycle"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `hourbank tracks projects through a status lifecycle and keeps an hour budget per project.

Core concepts:
- Project: has a yearly code (N-YYYY), a status, totalHours (budget) and usedHours (consumed).
- availableHours = totalHours - usedHours. usedHours never exceeds totalHours and never drops below zero.
- Every budget change appends an hour transaction; list_hour_transactions and verify_ledger replay it.
- Every status change appends a history entry; get_status_history lists them newest first.

Default workflow:
1) Orient: list_projects or get_project.
2) Before changing status call get_valid_transitions; pass a reason when the target needs one.
3) Before assigning work call check_acceptance, then consume_hours. Use release_hours when work is cancelled.
4) Grow a budget with extend_hours; fix mistakes with adjust_hours. Both need a reason.

Errors come back as {"code","message","recovery_hint"}. BUSY means another operation holds the project; retry.

Docs:
- hourbank://docs/lifecycle (status table and transition rules)
- hourbank://docs/hours (budget rules)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

const hoursDoc = `# Hour budget rules

- create_project records an allocation of total_hours.
- extend_hours adds to totalHours. additional_hours must be positive and reason is required.
- adjust_hours adds a signed amount to usedHours. It fails when usedHours would leave [0, totalHours].
- consume_hours adds to usedHours and fails with CONFLICT when the budget is short.
- release_hours subtracts from usedHours, stopping at zero.
- Consuming or releasing zero hours changes nothing and records nothing.

Each change is one ledger row with balance (used) and total before and after, so every row
starts where the previous one ended. verify_ledger checks exactly that.
`

func lifecycleDoc(machine *lifecycle.Machine) string {
	var b strings.Builder
	b.WriteString("# Project lifecycle\n\n")
	b.WriteString("| Status | Next | Entry | Terminal | Reason required | Accepts requests |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, def := range machine.Defs() {
		next := make([]string, 0, len(def.Next)+len(def.Reactivate))
		for _, s := range def.Next {
			next = append(next, string(s))
		}
		for _, s := range def.Reactivate {
			next = append(next, string(s)+" (reactivate)")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			def.Name, strings.Join(next, ", "),
			yesNo(def.Entry), yesNo(def.Terminal), yesNo(def.RequiresReason), yesNo(def.AcceptsRequests))
	}
	b.WriteString("\nExpired projects are produced by expire_overdue once an Active project's deadline passes.\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func docResources(machine *lifecycle.Machine) []docResource {
	return []docResource{
		{
			URI:         "hourbank://docs/lifecycle",
			Name:        "docs_lifecycle",
			Title:       "Project lifecycle",
			Description: "Statuses, allowed transitions and which targets require a reason.",
			Content:     lifecycleDoc(machine),
		},
		{
			URI:         "hourbank://docs/hours",
			Name:        "docs_hours",
			Title:       "Hour budget rules",
			Description: "How extensions, adjustments, consumption and release change a budget.",
			Content:     hoursDoc,
		},
	}
}

func registerDocResources(server *sdkmcp.Server, machine *lifecycle.Machine) {
	for _, doc := range docResources(machine) {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
