package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/services"
)

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps service errors onto status codes. Unknown errors
// are logged and reported as 500 with msg.
func writeServiceError(w http.ResponseWriter, logr *zap.Logger, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound), errors.Is(err, services.ErrCatalogueNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSegmentIndex),
		errors.Is(err, services.ErrInvalidPatch),
		errors.Is(err, catalogue.ErrInvalidCatalogue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logr.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}
