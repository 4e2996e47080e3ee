package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/config"
	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

type authFixture struct {
	e      *echo.Echo
	users  *memUsers
	tokens *utils.TokenIssuer
	user   *model.User
	raws   []string
}

// newAuthFixture seeds one student holding n live refresh tokens.
func newAuthFixture(t *testing.T, n int) *authFixture {
	t.Helper()
	tokens := utils.NewTokenIssuer("handler-secret", "housing-api", "housing-web", time.Minute, time.Hour)
	f := &authFixture{tokens: tokens}
	f.user = &model.User{ID: bson.NewObjectID(), Name: "Ada", Email: "ada@example.com", Role: model.RoleStudent}
	for i := 0; i < n; i++ {
		rt, err := tokens.NewRefreshToken()
		require.NoError(t, err)
		f.raws = append(f.raws, rt.Raw)
		f.user.RefreshTokens = append(f.user.RefreshTokens, model.RefreshToken{
			TokenHash: utils.HashRefreshRaw(rt.Raw),
			IssuedAt:  time.Now().UTC(),
			ExpiresAt: rt.Exp,
		})
	}
	f.users = newMemUsers(f.user)

	h := NewAuthHandler(service.NewAuthService(f.users, tokens, nopLogger()), nil, tokens,
		config.CookieConfig{Name: "refreshToken", Path: "/api/auth"})
	f.e = newEcho()
	f.e.POST("/api/auth/refresh", h.Refresh)
	f.e.POST("/api/auth/logout", h.Logout)
	return f
}

func withCookie(value string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "refreshToken", Value: value}) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func refreshCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refreshToken" {
			return ck
		}
	}
	return nil
}

type sessionBody struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func TestRefreshFromBodyRotates(t *testing.T) {
	f := newAuthFixture(t, 1)
	old := f.raws[0]

	rec := doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+old+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[sessionBody](t, rec)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.Access.Token)
	assert.Len(t, body.Data.Refresh.Token, 96)
	assert.NotEqual(t, old, body.Data.Refresh.Token)

	ck := refreshCookie(rec)
	require.NotNil(t, ck)
	assert.Equal(t, body.Data.Refresh.Token, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/api/auth", ck.Path)

	stored := f.users.tokens(f.user.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, utils.HashRefreshRaw(body.Data.Refresh.Token), stored[0].TokenHash)

	rec = doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+old+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a consumed token is refused")
	ck = refreshCookie(rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Negative(t, ck.MaxAge)
}

func TestRefreshCookieWinsOverBody(t *testing.T) {
	f := newAuthFixture(t, 2)

	rec := doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"not-a-token"}`, withCookie(f.raws[0]))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A stale cookie is not rescued by a valid body token.
	rec = doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+f.raws[1]+`"}`, withCookie(f.raws[0]))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, f.users.tokens(f.user.ID), 2, "the body token is untouched")
}

func TestRefreshWithoutToken(t *testing.T) {
	f := newAuthFixture(t, 0)
	rec := doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"refresh token required"}`, rec.Body.String())
}

func TestLogoutWithRefreshTokenRevokesOne(t *testing.T) {
	f := newAuthFixture(t, 3)

	rec := doJSON(f.e, http.MethodPost, "/api/auth/logout", `{"refreshToken":"`+f.raws[1]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "logged out", decode[any](t, rec).Message)

	stored := f.users.tokens(f.user.ID)
	require.Len(t, stored, 2)
	for _, tok := range stored {
		assert.NotEqual(t, utils.HashRefreshRaw(f.raws[1]), tok.TokenHash)
	}
	ck := refreshCookie(rec)
	require.NotNil(t, ck)
	assert.Negative(t, ck.MaxAge)
}

func TestLogoutWithBearerOnlyRevokesAll(t *testing.T) {
	f := newAuthFixture(t, 3)
	access, err := f.tokens.NewAccessToken(f.user.ID.Hex(), f.user.Role)
	require.NoError(t, err)

	rec := doJSON(f.e, http.MethodPost, "/api/auth/logout", `{}`, withBearer(access.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, f.users.tokens(f.user.ID), "every session ends")

	for _, raw := range f.raws {
		rec = doJSON(f.e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+raw+`"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestLogoutNeedsCredentials(t *testing.T) {
	f := newAuthFixture(t, 1)

	rec := doJSON(f.e, http.MethodPost, "/api/auth/logout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(f.e, http.MethodPost, "/api/auth/logout", `{}`, withBearer("garbage"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.users.tokens(f.user.ID), 1)
}
