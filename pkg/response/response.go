// pkg/response/response.go
package response

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeDatabase     = "DATABASE_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, message, details string) {
	WriteJSON(w, status, ErrorBody{
		Error:     message,
		Details:   details,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func ValidationError(w http.ResponseWriter, message, details string) {
	WriteError(w, http.StatusBadRequest, CodeValidation, message, details)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message, "")
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message, "")
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message, "")
}

// DatabaseError and InternalError never echo err to the client.
func DatabaseError(w http.ResponseWriter, err error) {
	log.Printf("Database error: %v", err)
	WriteError(w, http.StatusInternalServerError, CodeDatabase, "A database error occurred", "")
}

func InternalError(w http.ResponseWriter, err error) {
	log.Printf("Internal error: %v", err)
	WriteError(w, http.StatusInternalServerError, CodeInternal, "An internal error occurred", "")
}
