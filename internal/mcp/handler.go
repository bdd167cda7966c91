package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/ledger"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
	"github.com/shopspring/decimal"
)

// handler implements the MCP tools on top of the domain services. Every
// method returns the value serialized into the tool result.
type handler struct {
	services app.Services
	logger   *slog.Logger
}

func (h *handler) createProject(ctx context.Context, in CreateProjectParams) (any, error) {
	var deadline *time.Time
	if strings.TrimSpace(in.Deadline) != "" {
		d, err := time.Parse(time.RFC3339, strings.TrimSpace(in.Deadline))
		if err != nil {
			return nil, project.Validationf("deadline must be an RFC 3339 timestamp")
		}
		deadline = &d
	}
	return h.services.Projects.Create(ctx, project.CreateRequest{
		Name:       in.Name,
		TotalHours: decimal.NewFromFloat(in.TotalHours),
		Deadline:   deadline,
		OwnerID:    in.OwnerID,
		Actor:      getActor(ctx),
	})
}

func (h *handler) getProject(ctx context.Context, in ProjectIDParams) (any, error) {
	return h.services.Projects.Get(ctx, in.ProjectID)
}

func (h *handler) listProjects(ctx context.Context, in ListProjectsParams) (any, error) {
	opts := project.ListOptions{Limit: in.Limit, Offset: in.Offset}
	if in.Status != "" {
		st := project.Status(in.Status)
		if !h.services.Lifecycle.Machine().IsKnown(st) {
			return nil, project.Validationf("Invalid status")
		}
		opts.Status = &st
	}
	projects, err := h.services.Projects.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ListProjectsResponse{Projects: projects}, nil
}

func (h *handler) renameProject(ctx context.Context, in RenameProjectParams) (any, error) {
	return h.services.Projects.Rename(ctx, in.ProjectID, in.Name, getActor(ctx))
}

func (h *handler) deleteProject(ctx context.Context, in ProjectIDParams) (any, error) {
	if err := h.services.Projects.Delete(ctx, in.ProjectID, getActor(ctx)); err != nil {
		return nil, err
	}
	return DeleteProjectResponse{Deleted: in.ProjectID}, nil
}

func (h *handler) transitionStatus(ctx context.Context, in TransitionStatusParams) (any, error) {
	var reason *string
	if in.Reason != "" {
		reason = &in.Reason
	}
	return h.services.Lifecycle.Transition(ctx, lifecycle.TransitionRequest{
		ProjectID: in.ProjectID,
		Target:    project.Status(in.Status),
		Reason:    reason,
		Actor:     getActor(ctx),
	})
}

func (h *handler) getValidTransitions(ctx context.Context, in ProjectIDParams) (any, error) {
	return h.services.Lifecycle.GetValidTransitions(ctx, in.ProjectID)
}

func (h *handler) getStatusHistory(ctx context.Context, in PageParams) (any, error) {
	return h.services.Lifecycle.GetHistory(ctx, in.ProjectID, in.Limit, in.Offset)
}

func (h *handler) expireOverdue(ctx context.Context, _ ExpireOverdueParams) (any, error) {
	res, err := h.services.Sweep.CheckAndExpire(ctx)
	if err != nil {
		return nil, err
	}
	return ExpireOverdueResponse{
		Message:         fmt.Sprintf("Expired %d project(s)", res.ExpiredCount),
		ExpiredCount:    res.ExpiredCount,
		ExpiredProjects: res.ExpiredProjectIDs,
		Failures:        res.Failures,
	}, nil
}

func (h *handler) projectsNearDeadline(ctx context.Context, in NearDeadlineParams) (any, error) {
	days := sweep.DefaultDaysAhead
	if in.DaysAhead != nil {
		days = *in.DaysAhead
	}
	projects, err := h.services.Sweep.NearDeadline(ctx, days)
	if err != nil {
		return nil, err
	}
	return NearDeadlineResponse{Projects: projects, DaysAhead: days}, nil
}

func (h *handler) checkAcceptance(ctx context.Context, in ProjectIDParams) (any, error) {
	return h.services.Acceptance.CanAcceptRequests(ctx, in.ProjectID)
}

func (h *handler) extendHours(ctx context.Context, in ExtendHoursParams) (any, error) {
	return h.services.Ledger.Extend(ctx, ledger.ExtendRequest{
		ProjectID:       in.ProjectID,
		AdditionalHours: decimal.NewFromFloat(in.AdditionalHours),
		Reason:          in.Reason,
		Actor:           getActor(ctx),
	})
}

func (h *handler) adjustHours(ctx context.Context, in AdjustHoursParams) (any, error) {
	return h.services.Ledger.Adjust(ctx, ledger.AdjustRequest{
		ProjectID: in.ProjectID,
		Delta:     decimal.NewFromFloat(in.Adjustment),
		Reason:    in.Reason,
		Actor:     getActor(ctx),
	})
}

func (h *handler) consumeHours(ctx context.Context, in HoursParams) (any, error) {
	proj, err := h.services.Ledger.Consume(ctx, in.ProjectID, decimal.NewFromFloat(in.Hours), getActor(ctx))
	if err != nil {
		return nil, err
	}
	return HoursResponse{Project: proj}, nil
}

func (h *handler) releaseHours(ctx context.Context, in HoursParams) (any, error) {
	proj, err := h.services.Ledger.Release(ctx, in.ProjectID, decimal.NewFromFloat(in.Hours), getActor(ctx))
	if err != nil {
		return nil, err
	}
	return HoursResponse{Project: proj}, nil
}

func (h *handler) listHourTransactions(ctx context.Context, in PageParams) (any, error) {
	return h.services.Ledger.Transactions(ctx, in.ProjectID, in.Limit, in.Offset)
}

func (h *handler) verifyLedger(ctx context.Context, in ProjectIDParams) (any, error) {
	return h.services.Ledger.VerifyChain(ctx, in.ProjectID)
}

func (h *handler) getRecentActivity(ctx context.Context, in GetRecentActivityParams) (any, error) {
	opts := activity.ListActivityOptions{
		ProjectID: in.ProjectID,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if in.Actor != "" {
		opts.Actor = &in.Actor
	}
	if in.Type != "" {
		t := activity.ActivityType(in.Type)
		opts.ActivityType = &t
	}
	entries, err := h.services.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return GetRecentActivityResponse{Activity: entries}, nil
}
