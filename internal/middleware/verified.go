package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// UserLookup loads an account by id.
type UserLookup interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
}

// RequireEmailVerified lets the request through only when the caller's
// email is verified.  It must run after JWTAuth.  The flag is read from
// the database because tokens outlive verification.
func RequireEmailVerified(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get(UserIDKey).(bson.ObjectID)
			if !ok {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()

			user, err := users.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if err != nil {
				zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("user_id", id.Hex()).Msg("verification check failed")
				return deny(c, http.StatusInternalServerError, "internal server error")
			}
			if !user.IsEmailVerified {
				return deny(c, http.StatusForbidden, "email verification required")
			}
			return next(c)
		}
	}
}
