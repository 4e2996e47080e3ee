package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// Health is the liveness endpoint used by load balancers.  It answers 503
// while the database is unreachable.
func Health(ping Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if ping != nil {
			if err := ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, envelope{Error: "database unavailable"})
			}
		}
		return ok(c, http.StatusOK, echo.Map{"status": "ok"})
	}
}
