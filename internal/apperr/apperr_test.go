package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   Kind
		status int
	}{
		{"validation", Validation("bad"), KindValidation, http.StatusBadRequest},
		{"authentication", Unauthenticated("who"), KindAuthentication, http.StatusUnauthorized},
		{"authorization", Forbidden("no"), KindAuthorization, http.StatusForbidden},
		{"not found", NotFound("gone"), KindNotFound, http.StatusNotFound},
		{"conflict", Conflict("dup"), KindConflict, http.StatusConflict},
		{"wrapped", fmt.Errorf("outer: %w", Forbidden("no")), KindAuthorization, http.StatusForbidden},
		{"plain", errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KindOf(tt.err)
			if got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
			if got.HTTPStatus() != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", got.HTTPStatus(), tt.status)
			}
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Internal("Error creating group", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if err.Message != "Error creating group" {
		t.Errorf("Message = %q", err.Message)
	}
}
