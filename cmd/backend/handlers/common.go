package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/lifecycle"
	"github.com/hairizuan-noorazman/repair-desk/logger"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists the intake fields that need attention.
type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// SuccessResponse represents a success response with a message.
type SuccessResponse struct {
	Message string `json:"message"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondSuccess writes a success response with the given message.
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, SuccessResponse{Message: message})
}

// respondJobError maps job and lifecycle errors onto HTTP statuses.
func respondJobError(w http.ResponseWriter, r *http.Request, err error, action string, log logger.Logger) {
	var verr *job.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  "missing or invalid fields",
			Fields: verr.Fields,
		})
	case errors.Is(err, job.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, job.ErrJobNotFound):
		respondError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, lifecycle.ErrDeleteNotConfirmed):
		respondError(w, http.StatusBadRequest, "delete must be confirmed with confirm=true")
	case errors.Is(err, lifecycle.ErrNoEmail):
		respondError(w, http.StatusBadRequest, "job has no email address")
	case errors.Is(err, job.ErrStoreUnavailable):
		log.Error(r.Context(), "job store unavailable", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
		respondError(w, http.StatusServiceUnavailable, "job store unavailable, please retry")
	default:
		log.Error(r.Context(), "failed to "+action, map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// parseJSON parses JSON from the request body into the given destination.
func parseJSON(r *http.Request, dest interface{}, log logger.Logger) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Error(r.Context(), "failed to parse JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// parseUUID parses a UUID from the request path parameters.
func parseUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	vars := mux.Vars(r)
	return uuid.Parse(vars[paramName])
}

// parseUUIDOrRespond parses a UUID from path parameters and responds with an error if invalid.
// Returns the UUID and true if successful, or uuid.Nil and false if parsing failed (error response already sent).
func parseUUIDOrRespond(w http.ResponseWriter, r *http.Request, paramName, entityName string) (uuid.UUID, bool) {
	id, err := parseUUID(r, paramName)
	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s ID: must be a valid UUID", entityName))
		return uuid.Nil, false
	}
	return id, true
}
