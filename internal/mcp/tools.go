package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools adds every hourbank tool to server.
func registerTools(server *sdkmcp.Server, h *handler) {
	// Projects
	addTool(server, h, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a project with an initial hour budget. The project gets a yearly code such as 3-2025.",
	}, h.createProject)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a project including its status and hour budget",
	}, h.getProject)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List projects newest first, optionally filtered by status",
	}, h.listProjects)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "rename_project",
		Description: "Change a project's display name",
	}, h.renameProject)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project that has no work requests",
	}, h.deleteProject)

	// Lifecycle
	addTool(server, h, &sdkmcp.Tool{
		Name:        "transition_status",
		Description: "Move a project to another status. Some targets require a reason; see hourbank://docs/lifecycle.",
	}, h.transitionStatus)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "get_valid_transitions",
		Description: "List the statuses a project can move to next and which of them need a reason",
	}, h.getValidTransitions)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "get_status_history",
		Description: "Get a project's status changes, newest first",
	}, h.getStatusHistory)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "expire_overdue",
		Description: "Expire every Active project whose deadline has passed",
	}, h.expireOverdue)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "projects_near_deadline",
		Description: "List Active projects whose deadline falls within the next days_ahead days",
	}, h.projectsNearDeadline)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "check_acceptance",
		Description: "Check whether a project may take new work requests",
	}, h.checkAcceptance)

	// Hours
	addTool(server, h, &sdkmcp.Tool{
		Name:        "extend_hours",
		Description: "Raise a project's total hour budget",
	}, h.extendHours)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "adjust_hours",
		Description: "Apply a signed manual correction to a project's used hours",
	}, h.adjustHours)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "consume_hours",
		Description: "Consume hours from a project's budget when estimated work is assigned",
	}, h.consumeHours)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "release_hours",
		Description: "Return hours to a project's budget; used hours never drop below zero",
	}, h.releaseHours)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "list_hour_transactions",
		Description: "List a project's hour ledger, oldest first",
	}, h.listHourTransactions)
	addTool(server, h, &sdkmcp.Tool{
		Name:        "verify_ledger",
		Description: "Replay a project's hour ledger and report any break in the chain",
	}, h.verifyLedger)

	// Activity
	addTool(server, h, &sdkmcp.Tool{
		Name:        "get_recent_activity",
		Description: "List recent audit entries, newest first",
	}, h.getRecentActivity)
}

func addTool[In any](server *sdkmcp.Server, h *handler, tool *sdkmcp.Tool, fn func(context.Context, In) (any, error)) {
	sdkmcp.AddTool(server, tool, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return h.errorResult(tool.Name, err), nil, nil
		}
		res, err := jsonResult(out)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", tool.Name, err)
		}
		return res, nil, nil
	})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func (h *handler) errorResult(tool string, err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	if apiErr.Code == "INTERNAL" {
		h.logger.Error("tool failed", "tool", tool, "error", err)
	}
	data, marshalErr := json.Marshal(apiErr)
	if marshalErr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
