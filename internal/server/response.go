package server

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope every endpoint returns.
type apiResponse struct {
	Data  any       `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are ignored as headers are already sent.
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Data: data})
}

func accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, apiResponse{Data: data})
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiResponse{Error: &apiError{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	fail(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func unauthorized(w http.ResponseWriter) {
	fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
}

func notFound(w http.ResponseWriter) {
	fail(w, http.StatusNotFound, "NOT_FOUND", "not found")
}

func methodNotAllowed(w http.ResponseWriter) {
	fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

func conflict(w http.ResponseWriter, message string) {
	fail(w, http.StatusConflict, "CONFLICT", message)
}

func internalError(w http.ResponseWriter) {
	fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}
