package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/handler"
	"github.com/iliyamo/student-housing-api/internal/middleware"
	"github.com/iliyamo/student-housing-api/internal/model"
)

// registerListings mounts public browsing and owner management of
// listings.  Anonymous reads go through the response cache; writes need a
// verified owner.
func registerListings(api *echo.Group, h *handler.ListingHandler, g guards) {
	l := api.Group("/listings")

	l.GET("", h.Search, g.cache)
	l.GET("/mine", h.Mine, g.auth, middleware.RequireRole(model.RoleOwner))
	l.GET("/:id", h.Get, g.cache, g.optional)

	owner := append([]echo.MiddlewareFunc{g.auth}, g.owner()...)
	l.POST("", h.Create, owner...)
	l.PUT("/:id", h.Update, owner...)
	l.PATCH("/:id/status", h.SetStatus, owner...)
	l.DELETE("/:id", h.Delete, owner...)
}
