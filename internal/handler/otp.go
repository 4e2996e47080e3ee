package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// OTPHandler serves the email code endpoints.
type OTPHandler struct {
	otp *service.OTPService
}

func NewOTPHandler(otp *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

type sendOTPReq struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"omitempty,oneof=email_verification password_reset"`
}

type verifyOTPReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// SendEmail issues a code to an email address.
func (h *OTPHandler) SendEmail(c echo.Context) error {
	var req sendOTPReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	typ := model.OTPEmailVerification
	if req.Type != "" {
		typ = model.OTPType(req.Type)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	exp, err := h.otp.Send(ctx, req.Email, typ)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "OTP sent", echo.Map{
		"expiresAt": exp,
		"expiresIn": int(time.Until(exp).Seconds()),
	})
}

// VerifyEmail consumes an email_verification code.
func (h *OTPHandler) VerifyEmail(c echo.Context) error {
	var req verifyOTPReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.otp.Verify(ctx, req.Email, model.OTPEmailVerification, req.Code); err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "OTP verified successfully", nil)
}
