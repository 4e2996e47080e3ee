package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/config"
	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	otp    *service.OTPService
	tokens *utils.TokenIssuer
	cookie config.CookieConfig
}

func NewAuthHandler(auth *service.AuthService, otp *service.OTPService, tokens *utils.TokenIssuer, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp, tokens: tokens, cookie: cookie}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=student owner"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type resetPasswordReq struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    *model.User `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

// Register creates the account and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Register(ctx, service.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusCreated, sess)
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Login(ctx, service.LoginParams{Email: req.Email, Password: req.Password})
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusOK, sess)
}

// Refresh rotates the presented refresh token.  The token is read from the
// cookie first, then the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.presentedRefresh(c)
	if raw == "" {
		return fail(c, http.StatusUnauthorized, "refresh token required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Refresh(ctx, raw)
	if err != nil {
		h.clearCookie(c)
		return respondError(c, err)
	}
	return h.session(c, http.StatusOK, sess)
}

// Logout revokes the presented refresh token.  Without one, a valid bearer
// token logs the user out of every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := h.presentedRefresh(c)

	var uid *bson.ObjectID
	if raw == "" {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			claims, err := h.tokens.VerifyAccessToken(strings.TrimSpace(token))
			if err == nil {
				if id, err := bson.ObjectIDFromHex(claims.Subject); err == nil {
					uid = &id
				}
			}
		}
		if uid == nil {
			return fail(c, http.StatusBadRequest, "provide Authorization header or refresh token")
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.auth.Logout(ctx, uid, raw)
	h.clearCookie(c)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "logged out", nil)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.Me(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, user)
}

// ResetPassword consumes a password_reset code and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.ResetPassword(ctx, h.otp, req.Email, req.Code, req.Password); err != nil {
		return respondError(c, err)
	}
	h.clearCookie(c)
	return okMessage(c, http.StatusOK, "password updated", nil)
}

func (h *AuthHandler) session(c echo.Context, status int, sess *service.Session) error {
	c.SetCookie(h.refreshCookie(sess.RefreshToken.Raw, sess.RefreshToken.Exp))
	return ok(c, status, authResp{
		User:    sess.User,
		Access:  tokenPart{Token: sess.AccessToken.Token, Expires: sess.AccessToken.Exp},
		Refresh: tokenPart{Token: sess.RefreshToken.Raw, Expires: sess.RefreshToken.Exp},
	})
}

func (h *AuthHandler) presentedRefresh(c echo.Context) string {
	if ck, err := c.Cookie(h.cookie.Name); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) refreshCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) clearCookie(c echo.Context) {
	ck := h.refreshCookie("", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)
}
