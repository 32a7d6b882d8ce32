package controllers

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/helpers"
)

// writeServiceError maps err to the API envelope. Internal errors are logged and their detail is not exposed.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, code := helpers.ErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, status, code, "internal server error")
		return
	}
	helpers.WriteJSONError(w, status, code, err.Error())
}

func writeUnauthorized(w http.ResponseWriter) {
	helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
}
