package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/student-housing-api/internal/service"
	"github.com/iliyamo/student-housing-api/internal/validation"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func okMessage(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Error: msg})
}

// errBadBody is returned when a request body cannot be decoded.
var errBadBody = errors.New("invalid request body")

// bind decodes and validates the request into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadBody
	}
	return c.Validate(dst)
}

// respondError translates err into a status and envelope.  Unknown errors
// are logged and reported as 500 with a generic message.
func respondError(c echo.Context, err error) error {
	var (
		verr     *validation.Error
		ruleErr  *service.ValidationError
		otpErr   *service.InvalidOTPError
		coolErr  *service.CooldownError
		echoHTTP *echo.HTTPError
	)

	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, envelope{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &ruleErr):
		return c.JSON(http.StatusBadRequest, envelope{
			Error:  ruleErr.Message,
			Fields: map[string]string{ruleErr.Field: ruleErr.Message},
		})
	case errors.Is(err, errBadBody):
		return fail(c, http.StatusBadRequest, err.Error())

	case errors.As(err, &otpErr):
		return c.JSON(http.StatusBadRequest, envelope{
			Error: "Invalid OTP",
			Data:  echo.Map{"remainingAttempts": otpErr.Remaining},
		})
	case errors.Is(err, service.ErrOTPNotFound):
		return fail(c, http.StatusBadRequest, "OTP not found or already used")
	case errors.Is(err, service.ErrOTPExpired):
		return fail(c, http.StatusBadRequest, "OTP has expired")
	case errors.Is(err, service.ErrOTPMaxAttempts):
		return fail(c, http.StatusBadRequest, "Maximum OTP verification attempts exceeded")
	case errors.As(err, &coolErr):
		secs := int(math.Ceil(coolErr.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, envelope{
			Error: "Please wait before requesting another OTP",
			Data:  echo.Map{"retryAfter": secs},
		})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrForbidden):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrListingUnavailable),
		errors.Is(err, service.ErrNoRoomsAvailable):
		return fail(c, http.StatusConflict, err.Error())

	case errors.As(err, &echoHTTP):
		msg := http.StatusText(echoHTTP.Code)
		if s, isStr := echoHTTP.Message.(string); isStr {
			msg = s
		}
		return fail(c, echoHTTP.Code, msg)
	}

	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")
	return fail(c, http.StatusInternalServerError, "internal server error")
}

// ErrorHandler renders errors that escape handlers, such as unknown routes
// or middleware rejections, in the response envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		var he *echo.HTTPError
		code := http.StatusInternalServerError
		if errors.As(err, &he) {
			code = he.Code
		}
		_ = c.NoContent(code)
		return
	}
	_ = respondError(c, err)
}
