package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's id
// (bson.ObjectID) and role (model.Role) in the context under UserIDKey and
// RoleKey.  Requests without a valid token are rejected with 401.
func JWTAuth(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, found := bearer(c)
			if !found {
				return deny(c, http.StatusUnauthorized, "missing bearer token")
			}
			if !authenticate(c, tokens, raw) {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes that also serve anonymous callers: a
// valid token sets the identity, anything else is ignored.
func OptionalJWT(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, found := bearer(c); found {
				authenticate(c, tokens, raw)
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, found := strings.CutPrefix(auth, "Bearer ")
	raw = strings.TrimSpace(raw)
	return raw, found && raw != ""
}

func authenticate(c echo.Context, tokens *utils.TokenIssuer, raw string) bool {
	claims, err := tokens.VerifyAccessToken(raw)
	if err != nil {
		return false
	}
	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return false
	}
	c.Set(UserIDKey, id)
	c.Set(RoleKey, claims.Role)
	return true
}
