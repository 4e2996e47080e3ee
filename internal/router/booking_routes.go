package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/handler"
)

// registerBookings mounts room bookings.
func registerBookings(api *echo.Group, h *handler.BookingHandler, g guards) {
	b := api.Group("/bookings", g.auth)

	b.GET("", h.List)
	b.GET("/:id", h.Get)

	b.POST("", h.Create, g.student()...)
	b.PUT("/:id/status", h.UpdateStatus, g.verified)
	b.PATCH("/:id/confirm-payment", h.ConfirmPayment, g.owner()...)
}
