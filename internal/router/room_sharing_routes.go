package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/handler"
)

// registerRoomSharing mounts shares and the cleanup trigger.  Cleanup
// accepts either the cron secret or a user token, so it is registered
// outside the JWT chain.
func registerRoomSharing(api *echo.Group, h *handler.RoomSharingHandler, g guards, cron echo.MiddlewareFunc) {
	rs := api.Group("/room-sharing")

	rs.GET("/cleanup", h.Cleanup, cron)
	rs.POST("/cleanup", h.Cleanup, cron)

	rs.GET("", h.List, g.auth)
	rs.GET("/:id", h.Get, g.auth)

	student := append([]echo.MiddlewareFunc{g.auth}, g.student()...)
	rs.POST("", h.Create, student...)
	rs.POST("/:id/apply", h.Apply, student...)
	rs.POST("/:id/applications/:appId/respond", h.RespondApplication, student...)
	rs.PATCH("/:id/deactivate", h.Deactivate, student...)
}
