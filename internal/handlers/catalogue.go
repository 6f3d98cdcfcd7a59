package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/services"
)

type CatalogueHandler struct {
	service *services.CatalogueService
	logr    *zap.Logger
}

func NewCatalogueHandler(svc *services.CatalogueService, logr *zap.Logger) *CatalogueHandler {
	return &CatalogueHandler{service: svc, logr: logr}
}

// ListCatalogues handles GET /api/v1/catalogues
func (h *CatalogueHandler) ListCatalogues(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to retrieve catalogues")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
		"total":   len(records),
	})
}

// UploadCatalogue handles POST /api/v1/catalogues
// The body is a YAML or JSON catalogue document. The name comes from the
// "name" query parameter or the X-Catalogue-Name header.
func (h *CatalogueHandler) UploadCatalogue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	spec, err := catalogue.ParseSpec(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = r.Header.Get("X-Catalogue-Name")
	}

	rec, err := h.service.Upload(r.Context(), name, spec)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to store catalogue")
		return
	}
	writeData(w, http.StatusCreated, rec)
}

// GetCatalogue handles GET /api/v1/catalogues/{id}
func (h *CatalogueHandler) GetCatalogue(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to retrieve catalogue")
		return
	}
	writeData(w, http.StatusOK, rec)
}
