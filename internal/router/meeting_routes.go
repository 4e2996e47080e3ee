package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/handler"
)

// registerMeetings mounts the viewing negotiation.  Both parties share the
// routes; the service checks which side of the meeting the caller is on.
func registerMeetings(api *echo.Group, h *handler.MeetingHandler, g guards) {
	m := api.Group("/meetings", g.auth)

	m.GET("", h.List)
	m.GET("/:id", h.Get)

	m.POST("", h.Create, g.student()...)
	m.POST("/:id/respond", h.Respond, g.owner()...)
	m.POST("/:id/student-respond", h.StudentRespond, g.student()...)
	m.POST("/:id/reschedule", h.Reschedule, g.owner()...)
	m.POST("/:id/cancel", h.Cancel, g.verified)
	m.POST("/:id/complete", h.Complete, g.owner()...)
}
