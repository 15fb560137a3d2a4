package httpapi

import (
	"encoding/json"
	"net/http"

	"whisperd/internal/manager"
	"whisperd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSONErrorKind(w, status, msg, "")
}

// writeJSONErrorKind includes the machine-readable kind when known.
func writeJSONErrorKind(w http.ResponseWriter, status int, msg string, kind types.ErrorKind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Kind: kind, Code: status})
}

// writeManagerError maps the orchestration error taxonomy to HTTP
// status codes: caller errors 400, unknown models 404, load failures
// and everything else 500.
func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsInvalidRequest(err):
		writeJSONErrorKind(w, http.StatusBadRequest, err.Error(), types.ErrKindInvalidRequest)
	case manager.IsModelNotFound(err):
		writeJSONErrorKind(w, http.StatusNotFound, err.Error(), types.ErrKindModelNotFound)
	case manager.IsModelLoadFailed(err):
		writeJSONErrorKind(w, http.StatusInternalServerError, err.Error(), types.ErrKindModelLoadFailed)
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
