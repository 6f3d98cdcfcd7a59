package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
	"cablesizer/internal/services"
	"cablesizer/internal/sizing"
)

type SizingHandler struct {
	recomputer *services.Recomputer
	catalogues *services.CatalogueService
	logr       *zap.Logger
}

func NewSizingHandler(rc *services.Recomputer, cats *services.CatalogueService, logr *zap.Logger) *SizingHandler {
	return &SizingHandler{recomputer: rc, catalogues: cats, logr: logr}
}

type recomputeReq struct {
	Segments    []models.CableSegment `json:"segments"`
	CatalogueID string                `json:"catalogueId,omitempty"`
	Catalogue   catalogue.Spec        `json:"catalogue,omitempty"`
	Options     *sizing.Options       `json:"options,omitempty"`
}

type segmentReq struct {
	Segment     models.CableSegment `json:"segment"`
	CatalogueID string              `json:"catalogueId,omitempty"`
	Catalogue   catalogue.Spec      `json:"catalogue,omitempty"`
	Options     *sizing.Options     `json:"options,omitempty"`
}

// Recompute handles POST /api/v1/sizing/recompute
// Sizes an ad-hoc segment list and resolves its topology without storing it.
func (h *SizingHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	cat, err := h.catalogue(r, req.CatalogueID, req.Catalogue)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to resolve catalogue")
		return
	}

	report := h.withOptions(req.Options).Recompute(req.Segments, cat)
	writeData(w, http.StatusOK, report)
}

// SizeSegment handles POST /api/v1/sizing/segment
// Sizes a single segment; no topology is resolved.
func (h *SizingHandler) SizeSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	cat, err := h.catalogue(r, req.CatalogueID, req.Catalogue)
	if err != nil {
		writeServiceError(w, h.logr, err, "failed to resolve catalogue")
		return
	}

	seg := req.Segment
	seg.Normalize()
	res := h.withOptions(req.Options).Engine().Size(seg, cat)
	writeData(w, http.StatusOK, res)
}

// catalogue prefers an inline document over a stored id.
func (h *SizingHandler) catalogue(r *http.Request, id string, inline catalogue.Spec) (*catalogue.Catalogue, error) {
	if len(inline) > 0 {
		return catalogue.FromSpec("inline", inline)
	}
	return h.catalogues.Resolve(r.Context(), id)
}

func (h *SizingHandler) withOptions(opts *sizing.Options) *services.Recomputer {
	if opts == nil {
		return h.recomputer
	}
	return h.recomputer.WithOptions(h.recomputer.Engine().Options().Overlay(*opts))
}
