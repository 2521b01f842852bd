package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/project"
)

// ListProjects handles GET /api/projects. The default project is created
// when none exist yet.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List()
	if err == nil && len(projects) == 0 {
		if _, err = h.projects.EnsureDefault(); err == nil {
			projects, err = h.projects.List()
		}
	}
	if err != nil {
		h.logger.Error("failed to list projects", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list projects", "PROJECT_LIST_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	p, err := h.projects.Create(req.Name)
	if err != nil {
		h.writeProjectError(w, req.Name, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProjectResponse{Project: p})
}

// GetProject handles GET /api/projects/{name}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := h.projects.Get(name)
	if err != nil {
		h.writeProjectError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

// DeleteProject handles DELETE /api/projects/{name}.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.projects.Delete(name); err != nil {
		h.writeProjectError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteProjectResponse{Deleted: true, Name: name})
}

// ProjectStats handles GET /api/projects/{name}/stats.
func (h *Handlers) ProjectStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	st, err := h.projects.Stats(name)
	if err != nil {
		h.writeProjectError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) writeProjectError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, project.ErrInvalidName), errors.Is(err, project.ErrPathTraversal):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PROJECT")
	case errors.Is(err, project.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "PROJECT_NOT_FOUND")
	case errors.Is(err, project.ErrProjectExists):
		writeError(w, http.StatusConflict, err.Error(), "PROJECT_EXISTS")
	case errors.Is(err, project.ErrNotAProject):
		writeError(w, http.StatusConflict, err.Error(), "NOT_A_PROJECT")
	default:
		h.logger.Error("project operation failed",
			slog.String("project", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "project operation failed", "PROJECT_FAILED")
	}
}
