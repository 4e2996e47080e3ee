// Package repository defines the MongoDB persistence layer and the
// sentinel errors shared by every collection.  Higher layers translate
// them into HTTP statuses: ErrNotFound into 404, ErrForbidden into 403 and
// ErrConflict into 409.
package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrNotFound is returned when no document matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// document they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update matched nothing
// because the document changed underneath the caller (status moved on,
// version bumped, capacity exhausted).
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an address already in use.
var ErrEmailExists = errors.New("email already exists")

// notFound maps the driver's empty-result error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
