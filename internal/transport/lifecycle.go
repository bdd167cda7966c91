package transport

import (
	"fmt"
	"net/http"

	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
	"github.com/go-chi/chi/v5"
)

type transitionRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.services.Lifecycle.Transition(r.Context(), lifecycle.TransitionRequest{
		ProjectID: chi.URLParam(r, "id"),
		Target:    project.Status(req.Status),
		Reason:    req.Reason,
		Actor:     actorOf(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidTransitions(w http.ResponseWriter, r *http.Request) {
	res, err := s.services.Lifecycle.GetValidTransitions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.services.Lifecycle.GetHistory(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history":    page.Entries,
		"pagination": pagination{Total: page.Total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (s *Server) handleExpireOverdue(w http.ResponseWriter, r *http.Request) {
	res, err := s.services.Sweep.CheckAndExpire(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("Expired %s", pluralize(res.ExpiredCount, "project")),
		"expiredCount":    res.ExpiredCount,
		"expiredProjects": res.ExpiredProjectIDs,
		"failures":        res.Failures,
	})
}

func (s *Server) handleNearDeadline(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "daysAhead", sweep.DefaultDaysAhead)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projects, err := s.services.Sweep.NearDeadline(r.Context(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "daysAhead": days})
}

func (s *Server) handleAcceptance(w http.ResponseWriter, r *http.Request) {
	decision, err := s.services.Acceptance.CanAcceptRequests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
