package middleware

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// Context keys set by JWTAuth.  Handlers read them back with c.Get.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// userID returns the hex id of the authenticated caller, or "anon".
func userID(c echo.Context) string {
	if id, ok := c.Get(UserIDKey).(bson.ObjectID); ok && !id.IsZero() {
		return id.Hex()
	}
	return "anon"
}

func currentRole(c echo.Context) (model.Role, bool) {
	r, ok := c.Get(RoleKey).(model.Role)
	return r, ok
}

// deny writes the error envelope used by every handler.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}
