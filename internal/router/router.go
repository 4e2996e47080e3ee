package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/student-housing-api/internal/config"
	"github.com/iliyamo/student-housing-api/internal/handler"
	"github.com/iliyamo/student-housing-api/internal/middleware"
	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

// Deps is everything the routes need.  Limiters may be nil, which disables
// rate limiting; Cache may be nil, which disables response caching.
type Deps struct {
	Logger *zerolog.Logger
	Tokens *utils.TokenIssuer
	Users  middleware.UserLookup
	Ping   handler.Pinger

	Auth        *handler.AuthHandler
	OTP         *handler.OTPHandler
	Listings    *handler.ListingHandler
	Meetings    *handler.MeetingHandler
	Bookings    *handler.BookingHandler
	RoomSharing *handler.RoomSharingHandler
	Profile     *handler.ProfileHandler

	CronSecret  string
	RateLimit   config.RateLimitConfig
	Limiter     middleware.Limiter
	AuthLimiter middleware.Limiter
	Cache       echo.MiddlewareFunc
}

// guards bundles the middleware chains shared by the route files.
type guards struct {
	auth     echo.MiddlewareFunc
	optional echo.MiddlewareFunc
	verified echo.MiddlewareFunc
	cache    echo.MiddlewareFunc
}

func (g guards) owner() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.verified, middleware.RequireRole(model.RoleOwner)}
}

func (g guards) student() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.verified, middleware.RequireRole(model.RoleStudent)}
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.Ping))

	g := guards{
		auth:     middleware.JWTAuth(d.Tokens),
		optional: middleware.OptionalJWT(d.Tokens),
		verified: middleware.RequireEmailVerified(d.Users),
		cache:    d.Cache,
	}
	if g.cache == nil {
		g.cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	api := e.Group("/api", middleware.RateLimit(d.RateLimit, d.Limiter, d.Logger))

	authCfg := d.RateLimit.WithCapacity(d.RateLimit.AuthCapacity, d.RateLimit.Prefix+":auth")
	strict := middleware.RateLimit(authCfg, d.AuthLimiter, d.Logger)

	registerAuth(api, d.Auth, d.OTP, g, strict)
	registerListings(api, d.Listings, g)
	registerMeetings(api, d.Meetings, g)
	registerBookings(api, d.Bookings, g)
	registerRoomSharing(api, d.RoomSharing, g, middleware.CronOrJWT(d.CronSecret, d.Tokens))
	registerProfile(api, d.Profile, g)
}

// registerAuth mounts the session and OTP endpoints.  Credential routes sit
// behind the stricter limiter.
func registerAuth(api *echo.Group, a *handler.AuthHandler, o *handler.OTPHandler, g guards, strict echo.MiddlewareFunc) {
	auth := api.Group("/auth")
	auth.POST("/register", a.Register, strict)
	auth.POST("/login", a.Login, strict)
	auth.POST("/refresh", a.Refresh, strict)
	auth.POST("/logout", a.Logout)
	auth.POST("/reset-password", a.ResetPassword, strict)
	auth.GET("/me", a.Me, g.auth)

	otp := api.Group("/otp", strict)
	otp.POST("/email/send", o.SendEmail)
	otp.POST("/email/verify", o.VerifyEmail)
}

// registerProfile mounts the profile endpoints for any signed-in user.
func registerProfile(api *echo.Group, p *handler.ProfileHandler, g guards) {
	profile := api.Group("/profile", g.auth)
	profile.PUT("", p.Update)
	profile.POST("/verification", p.RequestVerification)
}
