// Package service holds the business rules of every module.  Services work
// on repository interfaces and report failures through the sentinel errors
// below, which handlers translate into HTTP statuses.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// Repository errors pass through unchanged.
var (
	ErrNotFound  = repository.ErrNotFound
	ErrForbidden = repository.ErrForbidden
	ErrConflict  = repository.ErrConflict
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrEmailNotVerified    = errors.New("email verification required")

	// ErrInvalidTransition is returned when an action is not allowed from
	// the document's current status.
	ErrInvalidTransition = errors.New("action not allowed in current status")

	ErrListingUnavailable = errors.New("listing is not available")
	ErrNoRoomsAvailable   = errors.New("no rooms available")

	ErrOTPCooldown    = errors.New("otp requested too recently")
	ErrOTPNotFound    = errors.New("otp not found or already used")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPMaxAttempts = errors.New("maximum otp verification attempts exceeded")
	ErrOTPInvalid     = errors.New("invalid otp")
)

// ValidationError reports a request that passed decoding but breaks a
// business rule.  Field is the JSON name of the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// InvalidOTPError is returned for a wrong code and carries the attempts
// left before the code locks.
type InvalidOTPError struct {
	Remaining int
}

func (e *InvalidOTPError) Error() string {
	return fmt.Sprintf("invalid otp, %d attempts remaining", e.Remaining)
}

func (e *InvalidOTPError) Unwrap() error { return ErrOTPInvalid }

// CooldownError carries how long the caller must wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("otp requested too recently, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrOTPCooldown }

// Actor is the authenticated caller.
type Actor struct {
	ID   bson.ObjectID
	Role model.Role
}

// EventPublisher sends domain events.  Publishing is best effort: failures
// are logged and never fail the request that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 2 * time.Second
