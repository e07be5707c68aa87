package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrReadOnly):
		writeJSON(w, http.StatusForbidden, errorBody("content source is read-only"))
	case errors.Is(err, notebook.ErrMalformedNotebook), errors.Is(err, notebook.ErrInvalidJSON):
		slog.Warn(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("tutorial could not be parsed"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
