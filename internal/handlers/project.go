package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cablesizer/internal/models"
	"cablesizer/internal/services"
	"cablesizer/internal/utils"
)

type ProjectHandler struct {
	service *services.ProjectService
	logr    *zap.Logger
}

func NewProjectHandler(svc *services.ProjectService, logr *zap.Logger) *ProjectHandler {
	return &ProjectHandler{service: svc, logr: logr}
}

type catalogueReq struct {
	CatalogueID string `json:"catalogueId"`
}

// ListProjects handles GET /api/v1/projects?limit=&offset=
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := utils.ParseQueryInt(q, "limit", 50)
	offset := utils.ParseQueryInt(q, "offset", 0)

	projects, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to retrieve projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    projects,
		"total":   len(projects),
		"limit":   limit,
		"offset":  offset,
	})
}

// CreateProject handles POST /api/v1/projects
// The edit token is only returned here and by RotateToken.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req services.CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to create project")
		return
	}
	writeData(w, http.StatusCreated, created)
}

// GetProject handles GET /api/v1/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to retrieve project")
		return
	}
	writeData(w, http.StatusOK, p)
}

// GetReport handles GET /api/v1/projects/{id}/report?leaf=M-101,M-102
func (h *ProjectHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	leaves := utils.ParseQueryList(r.URL.Query(), "leaf")

	report, err := h.service.Report(r.Context(), chi.URLParam(r, "id"), leaves)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to compute report")
		return
	}
	writeData(w, http.StatusOK, report)
}

// ReplaceSegments handles PUT /api/v1/projects/{id}/segments
func (h *ProjectHandler) ReplaceSegments(w http.ResponseWriter, r *http.Request) {
	var segments []models.CableSegment
	if err := decodeJSON(w, r, &segments); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload, expected a segment array")
		return
	}

	report, err := h.service.ReplaceSegments(r.Context(), chi.URLParam(r, "id"), segments)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to replace segments")
		return
	}
	writeData(w, http.StatusOK, report)
}

// UpdateSegment handles PATCH /api/v1/projects/{id}/segments/{index}
func (h *ProjectHandler) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	var patch json.RawMessage
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	report, err := h.service.UpdateSegment(r.Context(), chi.URLParam(r, "id"), index, patch)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to update segment")
		return
	}
	writeData(w, http.StatusOK, report)
}

// DeleteSegment handles DELETE /api/v1/projects/{id}/segments/{index}
func (h *ProjectHandler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	report, err := h.service.DeleteSegment(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to delete segment")
		return
	}
	writeData(w, http.StatusOK, report)
}

// SetCatalogue handles PUT /api/v1/projects/{id}/catalogue
func (h *ProjectHandler) SetCatalogue(w http.ResponseWriter, r *http.Request) {
	var req catalogueReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	report, err := h.service.SetCatalogue(r.Context(), chi.URLParam(r, "id"), req.CatalogueID)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to set catalogue")
		return
	}
	writeData(w, http.StatusOK, report)
}

// RotateToken handles POST /api/v1/projects/{id}/token
func (h *ProjectHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.service.RotateToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to rotate token")
		return
	}
	writeData(w, http.StatusOK, tok)
}

// DeleteProject handles DELETE /api/v1/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logr, err, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid segment index")
		return 0, false
	}
	return index, true
}
