package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/storage"
)

var (
	errGroupNotFound = apperr.NotFound("Group not found")
	errUserNotFound  = apperr.NotFound("User not found")
)

// invariantError converts a model invariant violation into a validation
// error naming the offending field.
func invariantError(err error) error {
	var inv *models.InvariantError
	if errors.As(err, &inv) {
		return apperr.Validation(inv.Message, apperr.FieldError{Field: inv.Field, Message: inv.Message})
	}
	return apperr.Internal("failed to validate group", err)
}

// groupStoreError translates storage errors for group reads and writes.
func groupStoreError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errGroupNotFound
	case errors.Is(err, storage.ErrVersionConflict):
		return apperr.Conflict("Group was modified concurrently, please retry")
	default:
		return apperr.Internal("failed to "+op, err)
	}
}

// validateID rejects identifiers that are not UUIDs.
func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("Invalid "+field, apperr.FieldError{Field: field, Message: "must be a valid id"})
	}
	return nil
}
