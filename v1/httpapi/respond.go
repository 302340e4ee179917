package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/postgres"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError maps a database error to a response. Details stay in the log;
// clients see a generic message and the request id.
//
// Datastore failures, including exhausted retries, become 500. A database
// that is still starting or already shut down becomes 503.
func WriteError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if errors.Is(err, postgres.ErrNotInitialized) || errors.Is(err, postgres.ErrClosed) {
		status = http.StatusServiceUnavailable
		message = "service unavailable"
	}

	requestID := middleware.GetReqID(r.Context())
	log.Error("Request failed", err, map[string]interface{}{
		"request_id":       requestID,
		"path":             r.URL.Path,
		"status":           status,
		"connection_error": postgres.IsConnectionError(err),
	})

	WriteJSON(w, map[string]string{
		"error":      message,
		"request_id": requestID,
	}, status)
}
