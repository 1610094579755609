// Package response writes the JSON envelope every endpoint answers with.
//
//	{"status":"success","data":...}
//	{"status":"error","message":"...","errors":[{"field":"...","message":"..."}]}
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/campusbuy/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// InternalMessage is the only message clients see for unexpected failures.
const InternalMessage = "Internal server error"

// Envelope is the top-level response body.
type Envelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError is one per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Success writes data inside a success envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Status: StatusSuccess, Data: data})
}

// Message writes a success envelope that carries only a message.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Status: StatusSuccess, Message: msg})
}

// Error maps err to its HTTP status and writes an error envelope. Errors
// that are not *apperr.Error, or are internal, are logged and reported with
// a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := Envelope{Status: StatusError, Message: InternalMessage}

	if kind == apperr.KindInternal {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		JSON(w, kind.HTTPStatus(), body)
		return
	}

	var appErr *apperr.Error
	errors.As(err, &appErr)
	body.Message = appErr.Message
	for _, f := range appErr.Fields {
		body.Errors = append(body.Errors, FieldError(f))
	}
	JSON(w, kind.HTTPStatus(), body)
}
