package transport

import (
	"net/http"
	"time"

	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createProjectRequest struct {
	Name       string           `json:"name"`
	TotalHours *decimal.Decimal `json:"totalHours"`
	Deadline   *time.Time       `json:"deadline,omitempty"`
	OwnerID    string           `json:"ownerId,omitempty"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TotalHours == nil {
		s.writeError(w, r, project.Validationf("totalHours is required"))
		return
	}

	proj, err := s.services.Projects.Create(r.Context(), project.CreateRequest{
		Name:       req.Name,
		TotalHours: *req.TotalHours,
		Deadline:   req.Deadline,
		OwnerID:    req.OwnerID,
		Actor:      actorOf(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := project.ListOptions{Limit: limit, Offset: offset}
	if status := r.URL.Query().Get("status"); status != "" {
		st := project.Status(status)
		if !s.services.Lifecycle.Machine().IsKnown(st) {
			s.writeError(w, r, project.Validationf("Invalid status"))
			return
		}
		opts.Status = &st
	}

	projects, err := s.services.Projects.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	proj, err := s.services.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	proj, err := s.services.Projects.Rename(r.Context(), chi.URLParam(r, "id"), req.Name, actorOf(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Projects.Delete(r.Context(), chi.URLParam(r, "id"), actorOf(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := activity.ListActivityOptions{ProjectID: id, Limit: limit, Offset: offset}
	if t := r.URL.Query().Get("type"); t != "" {
		at := activity.ActivityType(t)
		opts.ActivityType = &at
	}

	entries, err := s.services.Activity.GetRecentActivity(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}
